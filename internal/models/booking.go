package models

import (
	"errors"
	"time"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
)

// TicketingStatus tracks out-of-band ticket issuance for consolidator bookings
type TicketingStatus string

const (
	TicketingStatusNone    TicketingStatus = "none"
	TicketingStatusPending TicketingStatus = "pending_ticketing"
)

// PendingRecordLocator is the sentinel PNR for consolidator bookings until a
// human agent issues the real reservation out-of-band.
const PendingRecordLocator = "PENDING"

// BookingAttempt is the unit of work for one customer booking request.
// It is created in memory at reference-generation time, enriched as each
// pipeline stage succeeds, and persisted exactly once at the end. After
// persistence it is mutated only by separate workflows (payment webhook,
// manual-ticketing completion).
type BookingAttempt struct {
	ID               string          `json:"id" db:"id"`
	BookingReference string          `json:"booking_reference" db:"booking_reference"`
	UserID           *string         `json:"user_id,omitempty" db:"user_id"`
	SourceAPI        OfferSource     `json:"source_api" db:"source_api"`
	Channel          BookingChannel  `json:"channel" db:"channel"`
	RoutingReason    string          `json:"routing_reason" db:"routing_reason"`
	ProviderOrderID  *string         `json:"provider_order_id,omitempty" db:"provider_order_id"`
	RecordLocator    *string         `json:"record_locator,omitempty" db:"record_locator"`
	BookingStatus    BookingStatus   `json:"booking_status" db:"booking_status"`
	PaymentStatus    PaymentStatus   `json:"payment_status" db:"payment_status"`
	TicketingStatus  TicketingStatus `json:"ticketing_status" db:"ticketing_status"`
	PaymentIntentID  *string         `json:"payment_intent_id,omitempty" db:"payment_intent_id"`

	// Net and customer amounts are tracked independently end to end
	NetPrice      float64 `json:"net_price" db:"net_price"`
	CustomerPrice float64 `json:"customer_price" db:"customer_price"`
	MarkupAmount  float64 `json:"markup_amount" db:"markup_amount"`
	Currency      string  `json:"currency" db:"currency"`

	IsHold        bool       `json:"is_hold" db:"is_hold"`
	HoldFee       float64    `json:"hold_fee" db:"hold_fee"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty" db:"hold_expires_at"`

	ContactEmail string `json:"contact_email" db:"contact_email"`
	ContactPhone string `json:"contact_phone" db:"contact_phone"`

	PassengerCount int       `json:"passenger_count" db:"passenger_count"`
	OfferID        string    `json:"offer_id" db:"offer_id"`
	OriginAirport  string    `json:"origin_airport" db:"origin_airport"`
	DestAirport    string    `json:"dest_airport" db:"dest_airport"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// RequiresManualTicketing reports whether ticket issuance happens out-of-band
func (b *BookingAttempt) RequiresManualTicketing() bool {
	return b.TicketingStatus == TicketingStatusPending
}

// PNR returns the record locator or an empty string when not yet assigned
func (b *BookingAttempt) PNR() string {
	if b.RecordLocator == nil {
		return ""
	}
	return *b.RecordLocator
}

// Passenger describes one traveler on a booking request
type Passenger struct {
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Gender         string `json:"gender,omitempty"`
	PassportNumber string `json:"passport_number,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
}

// ContactInfo holds traveler contact details used for recovery and receipts
type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PaymentInput carries the customer's chosen payment method. Card details are
// never stored raw; manual capture records only a masked fraud-signal row.
type PaymentInput struct {
	Method         string `json:"method"` // "card" or "manual_capture"
	CardholderName string `json:"cardholder_name,omitempty"`
	CardLastFour   string `json:"card_last_four,omitempty"`
	CardBrand      string `json:"card_brand,omitempty"`
}

// AddOn is an optional extra (bag, seat, insurance) priced additively
type AddOn struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
}

// CreateBookingRequest is the inbound booking payload
type CreateBookingRequest struct {
	Offer *Offer `json:"offer"`

	// ReturnOffer is set for separate-ticket trips where the return leg is
	// fulfilled independently of the outbound
	ReturnOffer *Offer        `json:"return_offer,omitempty"`
	PricedOffer *PricedOffer  `json:"priced_offer,omitempty"`
	Passengers  []Passenger   `json:"passengers"`
	Payment     *PaymentInput `json:"payment"`
	ContactInfo *ContactInfo  `json:"contact_info"`

	FareUpgrade float64  `json:"fare_upgrade,omitempty"`
	Bundle      float64  `json:"bundle,omitempty"`
	AddOns      []AddOn  `json:"add_ons,omitempty"`
	Seats       []string `json:"seats,omitempty"`

	IsHold            bool   `json:"is_hold,omitempty"`
	HoldDurationHours int    `json:"hold_duration_hours,omitempty"`
	PromoCode         string `json:"promo_code,omitempty"`
}

// Validate validates the booking request before any external call is made
func (r *CreateBookingRequest) Validate() error {
	if r.Offer == nil {
		return errors.New("offer is required")
	}
	if err := r.Offer.Validate(); err != nil {
		return err
	}
	if r.ReturnOffer != nil {
		if err := r.ReturnOffer.Validate(); err != nil {
			return err
		}
		if r.ReturnOffer.Price.Currency != r.Offer.Price.Currency {
			return errors.New("return offer currency must match the outbound offer")
		}
	}
	if len(r.Passengers) == 0 {
		return errors.New("at least one passenger is required")
	}
	if len(r.Passengers) > 9 {
		return errors.New("maximum 9 passengers per booking")
	}
	for _, p := range r.Passengers {
		if p.FirstName == "" || p.LastName == "" {
			return errors.New("passenger first and last name are required")
		}
	}
	if r.Payment == nil {
		return errors.New("payment information is required")
	}
	if r.ContactInfo == nil || r.ContactInfo.Email == "" {
		return errors.New("contact email is required")
	}
	if r.IsHold && r.HoldDurationHours <= 0 {
		return errors.New("hold_duration_hours is required for hold bookings")
	}
	if r.FareUpgrade < 0 || r.Bundle < 0 {
		return errors.New("fare_upgrade and bundle must not be negative")
	}
	for _, a := range r.AddOns {
		if a.Amount < 0 {
			return errors.New("add-on amounts must not be negative")
		}
	}
	return nil
}

// AddOnsTotal sums the optional extras, each defaulting to zero
func (r *CreateBookingRequest) AddOnsTotal() float64 {
	var total float64
	for _, a := range r.AddOns {
		total += a.Amount
	}
	return total
}

// ConfirmedBooking is the success payload returned to the caller
type ConfirmedBooking struct {
	ID                      string          `json:"id"`
	BookingReference        string          `json:"booking_reference"`
	SourceAPI               OfferSource     `json:"source_api"`
	PNR                     string          `json:"pnr"`
	Status                  BookingStatus   `json:"status"`
	PaymentStatus           PaymentStatus   `json:"payment_status"`
	TotalPrice              float64         `json:"total_price"`
	Currency                string          `json:"currency"`
	PaymentIntentID         string          `json:"payment_intent_id,omitempty"`
	ClientSecret            string          `json:"client_secret,omitempty"`
	IsHold                  bool            `json:"is_hold"`
	HoldExpiresAt           *time.Time      `json:"hold_expires_at,omitempty"`
	RequiresManualTicketing bool            `json:"requires_manual_ticketing"`
	TicketingStatus         TicketingStatus `json:"ticketing_status"`
}

// RecoveryInfo carries every identifier support needs when a booking exists
// externally but could not be confirmed locally
type RecoveryInfo struct {
	BookingReference string `json:"booking_reference"`
	ProviderOrderID  string `json:"provider_order_id,omitempty"`
	PNR              string `json:"pnr,omitempty"`
	PaymentIntentID  string `json:"payment_intent_id,omitempty"`
	ContactEmail     string `json:"contact_email,omitempty"`
}

// BookingSuccessResponse is the caller-facing success shape
type BookingSuccessResponse struct {
	Success bool              `json:"success"`
	Booking *ConfirmedBooking `json:"booking"`
}

// BookingFailureResponse is the caller-facing failure shape
type BookingFailureResponse struct {
	Success     bool          `json:"success"`
	Error       string        `json:"error"`
	Message     string        `json:"message"`
	Booking     *RecoveryInfo `json:"booking,omitempty"`
	PriceChange *PriceChange  `json:"price_change,omitempty"`
	SearchURL   string        `json:"search_url,omitempty"`
}

// TicketBookingRequest completes manual ticketing for a consolidator booking
type TicketBookingRequest struct {
	RecordLocator string `json:"record_locator" binding:"required"`
}
