package services

import (
	"context"
	"time"

	"github.com/airvoya/booking-backend/internal/models"
	"github.com/airvoya/booking-backend/internal/pricing"
	"github.com/airvoya/booking-backend/internal/providers"
	"github.com/sirupsen/logrus"
)

// BookingCoordinator executes the provider side of a booking attempt. It
// runs strictly before any payment call, so a coordination failure can never
// leave the customer charged for an unbooked itinerary.
type BookingCoordinator struct {
	instant providers.InstantProvider
	gds     providers.GDSProvider
	logger  *logrus.Logger
	now     func() time.Time
}

// NewBookingCoordinator creates a new BookingCoordinator
func NewBookingCoordinator(instant providers.InstantProvider, gds providers.GDSProvider, logger *logrus.Logger) *BookingCoordinator {
	return &BookingCoordinator{
		instant: instant,
		gds:     gds,
		logger:  logger,
		now:     time.Now,
	}
}

// CoordinateParams is the provider-booking input for one attempt
type CoordinateParams struct {
	BookingReference string
	Offer            *models.Offer
	ReturnOffer      *models.Offer
	Decision         models.RoutingDecision
	Passengers       []models.Passenger
	ContactEmail     string
	ContactPhone     string

	IsHold            bool
	HoldDurationHours int
}

// CoordinateResult carries the identifiers and state produced by the
// provider stage
type CoordinateResult struct {
	OrderID         string
	RecordLocator   string
	TicketingStatus models.TicketingStatus
	Hold            *pricing.HoldPricing
}

// Book runs the channel-appropriate booking flow
func (c *BookingCoordinator) Book(ctx context.Context, params CoordinateParams) (*CoordinateResult, error) {
	if params.Decision.Channel == models.ChannelManual {
		return c.bookManual(params), nil
	}

	var hold *pricing.HoldPricing
	if params.IsHold {
		h := pricing.HoldFee(params.HoldDurationHours, c.now())
		hold = &h
	}

	if params.ReturnOffer != nil {
		return c.bookSeparateTickets(ctx, params, hold)
	}

	result, err := c.bookLeg(ctx, params.Offer, params, hold)
	if err != nil {
		return nil, err
	}

	return &CoordinateResult{
		OrderID:         result.OrderID,
		RecordLocator:   result.RecordLocator,
		TicketingStatus: models.TicketingStatusNone,
		Hold:            hold,
	}, nil
}

// bookManual creates the local reservation record for the consolidator
// channel. No external call happens here: the real airline reservation is
// made out-of-band by a human agent, so the record locator stays PENDING
// until ticketing completes.
func (c *BookingCoordinator) bookManual(params CoordinateParams) *CoordinateResult {
	c.logger.WithFields(logrus.Fields{
		"booking_reference": params.BookingReference,
		"routing_reason":    params.Decision.Reason,
	}).Info("Manual consolidator reservation recorded, awaiting ticketing")

	return &CoordinateResult{
		RecordLocator:   models.PendingRecordLocator,
		TicketingStatus: models.TicketingStatusPending,
	}
}

// bookSeparateTickets books the outbound and return legs concurrently. The
// legs are independent, so neither waits on the other; the attempt fails if
// either leg fails. A failed attempt never auto-cancels the leg that
// succeeded: provider order creation is not safely reversible from here, so
// the partial booking is surfaced for manual intervention instead.
func (c *BookingCoordinator) bookSeparateTickets(ctx context.Context, params CoordinateParams, hold *pricing.HoldPricing) (*CoordinateResult, error) {
	type legResult struct {
		result *providers.OrderResult
		err    error
	}

	outCh := make(chan legResult, 1)
	retCh := make(chan legResult, 1)

	go func() {
		r, err := c.bookLeg(ctx, params.Offer, params, hold)
		outCh <- legResult{r, err}
	}()
	go func() {
		r, err := c.bookLeg(ctx, params.ReturnOffer, params, hold)
		retCh <- legResult{r, err}
	}()

	out := <-outCh
	ret := <-retCh

	if out.err != nil || ret.err != nil {
		firstErr := out.err
		if firstErr == nil {
			firstErr = ret.err
		}

		c.logger.WithFields(logrus.Fields{
			"booking_reference": params.BookingReference,
			"outbound_ok":       out.err == nil,
			"return_ok":         ret.err == nil,
		}).WithError(firstErr).Error("Separate-ticket booking failed, succeeded leg left for manual handling")

		return nil, models.NewBookingError(models.ErrCodeSeparateTicketFailed, "", firstErr)
	}

	return &CoordinateResult{
		OrderID:         joinLegs(out.result.OrderID, ret.result.OrderID),
		RecordLocator:   joinLegs(out.result.RecordLocator, ret.result.RecordLocator),
		TicketingStatus: models.TicketingStatusNone,
		Hold:            hold,
	}, nil
}

// bookLeg dispatches one offer to the client for its source
func (c *BookingCoordinator) bookLeg(ctx context.Context, offer *models.Offer, params CoordinateParams, hold *pricing.HoldPricing) (*providers.OrderResult, error) {
	req := providers.OrderRequest{
		Offer:            offer,
		Passengers:       params.Passengers,
		ContactEmail:     params.ContactEmail,
		ContactPhone:     params.ContactPhone,
		BookingReference: params.BookingReference,
	}
	if hold != nil {
		req.Hold = true
		req.HoldExpiresAt = hold.ExpiresAt.UTC().Format(time.RFC3339)
	}

	switch offer.Source {
	case models.SourceInstant:
		return c.instant.CreateOrder(ctx, req)
	case models.SourceGDS:
		return c.gds.CreateOrder(ctx, req)
	default:
		return nil, models.NewBookingError(models.ErrCodeInvalidData, "unknown offer source", nil)
	}
}

func joinLegs(out, ret string) string {
	if out == "" && ret == "" {
		return ""
	}
	return out + "/" + ret
}
