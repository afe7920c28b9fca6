package models

import (
	"errors"
	"fmt"
	"net/http"
)

// BookingErrorCode is a stable machine-readable failure classification
type BookingErrorCode string

const (
	ErrCodeSoldOut              BookingErrorCode = "SOLD_OUT"
	ErrCodePriceChanged         BookingErrorCode = "PRICE_CHANGED"
	ErrCodeInvalidData          BookingErrorCode = "INVALID_DATA"
	ErrCodeOfferExpired         BookingErrorCode = "OFFER_EXPIRED"
	ErrCodeRateLimited          BookingErrorCode = "RATE_LIMITED"
	ErrCodeServiceUnavailable   BookingErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeBookingFailed        BookingErrorCode = "BOOKING_FAILED"
	ErrCodeSeparateTicketFailed BookingErrorCode = "SEPARATE_TICKET_FAILED"
)

// PriceChange carries the customer-facing amounts of a price drift rejection
// so the caller can show the old and new totals side by side
type PriceChange struct {
	OldPrice float64 `json:"old_price"`
	NewPrice float64 `json:"new_price"`
	Currency string  `json:"currency"`
}

// BookingError is a classified pipeline failure. Code drives the HTTP status
// and the user-facing message; Recovery is populated when an external booking
// already exists and support needs its identifiers.
type BookingError struct {
	Code        BookingErrorCode `json:"code"`
	Message     string           `json:"message"`
	Recovery    *RecoveryInfo    `json:"recovery,omitempty"`
	PriceChange *PriceChange     `json:"price_change,omitempty"`
	Cause       error            `json:"-"`
}

func (e *BookingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BookingError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to the response status
func (e *BookingError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidData:
		return http.StatusBadRequest
	case ErrCodePriceChanged:
		return http.StatusConflict
	case ErrCodeSoldOut, ErrCodeOfferExpired:
		return http.StatusGone
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the customer-facing copy for the error code. Specific
// messages set by the pipeline take precedence.
func (e *BookingError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Code {
	case ErrCodeSoldOut:
		return "This flight is no longer available. Please search again for alternative flights."
	case ErrCodePriceChanged:
		return "The price for this flight has changed. Please review the updated price before booking."
	case ErrCodeInvalidData:
		return "Some of the information provided is invalid. Please check passenger details and try again."
	case ErrCodeOfferExpired:
		return "This offer has expired. Please search again for current prices."
	case ErrCodeRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case ErrCodeServiceUnavailable:
		return "The booking service is temporarily unavailable. Please try again shortly."
	case ErrCodeSeparateTicketFailed:
		return "One of the flights in this combination could not be booked. Please contact support."
	default:
		return "We could not complete your booking. Please try again or contact support."
	}
}

// NewBookingError builds a classified error wrapping an underlying cause
func NewBookingError(code BookingErrorCode, message string, cause error) *BookingError {
	return &BookingError{Code: code, Message: message, Cause: cause}
}

// AsBookingError extracts a BookingError from an error chain; unclassified
// errors collapse to BOOKING_FAILED.
func AsBookingError(err error) *BookingError {
	var be *BookingError
	if errors.As(err, &be) {
		return be
	}
	return &BookingError{Code: ErrCodeBookingFailed, Cause: err}
}
