// Package providers contains the HTTP clients for the two upstream flight
// content sources: the instant-ticketing provider and the GDS.
package providers

import (
	"context"
	"errors"

	"github.com/airvoya/booking-backend/internal/models"
)

// ErrUnrecognizedOrderShape is returned when a provider response contains
// neither an order id nor a record locator in any known location. A booking
// with unknown identifiers is a hard failure, never an unknown-but-ok.
var ErrUnrecognizedOrderShape = errors.New("provider order response has no recognizable order id or record locator")

// OrderRequest is the provider-neutral order creation input
type OrderRequest struct {
	Offer            *models.Offer
	Passengers       []models.Passenger
	ContactEmail     string
	ContactPhone     string
	BookingReference string

	// Hold reserves without payment until the given expiry
	Hold          bool
	HoldExpiresAt string
}

// OrderResult carries the identifiers extracted from a successful order
type OrderResult struct {
	OrderID       string
	RecordLocator string
}

// PriceConfirmation is the result of a live re-price call
type PriceConfirmation struct {
	NetPrice float64
	Currency string
}

// InstantProvider books offers sourced from the instant-ticketing channel
type InstantProvider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// GDSProvider books and re-prices offers sourced from the GDS
type GDSProvider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	ConfirmPrice(ctx context.Context, offer *models.Offer) (*PriceConfirmation, error)
}
