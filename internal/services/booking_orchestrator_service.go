package services

import (
	"context"
	"strconv"

	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/airvoya/booking-backend/internal/pricing"
	"github.com/airvoya/booking-backend/internal/routing"
	"github.com/airvoya/booking-backend/pkg/retry"
	"github.com/sirupsen/logrus"
)

// Collaborator interfaces are defined here, at the point of use, so the
// pipeline can be exercised against fakes.

// Reconciler verifies offer freshness before booking
type Reconciler interface {
	Reconcile(ctx context.Context, priced models.PricedOffer) (models.PricedOffer, error)
}

// ProviderCoordinator executes the provider side of a booking
type ProviderCoordinator interface {
	Book(ctx context.Context, params CoordinateParams) (*CoordinateResult, error)
}

// PaymentProcessor creates payment authorizations
type PaymentProcessor interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*models.PaymentAuthorization, error)
	IsConfigured() bool
}

// BookingStore persists booking attempts keyed by reference
type BookingStore interface {
	Upsert(booking *models.BookingAttempt) error
}

// CardAuthStore records masked card authorizations
type CardAuthStore interface {
	Create(auth *models.CardAuthorization) error
}

// AlertNotifier raises operator alerts outside the critical path
type AlertNotifier interface {
	Notify(ctx context.Context, alert models.Alert)
}

// ReferenceGenerator produces booking references
type ReferenceGenerator interface {
	Generate() (string, error)
}

// BookingRequestMeta carries request-level fraud signals captured by the
// handler
type BookingRequestMeta struct {
	UserID        *string
	IPAddress     string
	DeviceOS      string
	DeviceBrowser string
	IsMobile      bool
}

// PipelineOutcome accumulates the state of one orchestration run. Every
// stage records what it produced here, so failure paths always know which
// external artifacts exist.
type PipelineOutcome struct {
	Booking           *models.BookingAttempt
	Payment           *models.PaymentAuthorization
	Hold              *pricing.HoldPricing
	PaymentSoftFailed bool
	TotalPrice        float64
}

// RecoveryInfo builds the identifier set operators and customers need when
// the attempt could not be locally confirmed
func (o *PipelineOutcome) RecoveryInfo() *models.RecoveryInfo {
	info := &models.RecoveryInfo{
		BookingReference: o.Booking.BookingReference,
		PNR:              o.Booking.PNR(),
		ContactEmail:     o.Booking.ContactEmail,
	}
	if o.Booking.ProviderOrderID != nil {
		info.ProviderOrderID = *o.Booking.ProviderOrderID
	}
	if o.Payment != nil {
		info.PaymentIntentID = o.Payment.IntentID
	}
	return info
}

// BookingOrchestratorService runs the booking pipeline: reference →
// reconcile → price → route → provider booking → payment → persist →
// notify. Ordering is structural: each stage only receives what earlier
// stages produced.
type BookingOrchestratorService struct {
	references  ReferenceGenerator
	reconciler  Reconciler
	markup      *pricing.Engine
	router      *routing.Decider
	coordinator ProviderCoordinator
	payments    PaymentProcessor
	store       BookingStore
	cardAuths   CardAuthStore
	alerts      AlertNotifier
	retrier     *retry.Retrier
	config      config.BookingConfig
	logger      *logrus.Logger
}

// NewBookingOrchestratorService creates a new orchestrator
func NewBookingOrchestratorService(
	references ReferenceGenerator,
	reconciler Reconciler,
	markup *pricing.Engine,
	router *routing.Decider,
	coordinator ProviderCoordinator,
	payments PaymentProcessor,
	store BookingStore,
	cardAuths CardAuthStore,
	alerts AlertNotifier,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	return &BookingOrchestratorService{
		references:  references,
		reconciler:  reconciler,
		markup:      markup,
		router:      router,
		coordinator: coordinator,
		payments:    payments,
		store:       store,
		cardAuths:   cardAuths,
		alerts:      alerts,
		retrier:     retry.New(cfg.PersistAttempts, cfg.PersistBaseDelay),
		config:      cfg,
		logger:      logger,
	}
}

// WithRetrier replaces the persistence retrier, used by tests to observe
// backoff without waiting
func (s *BookingOrchestratorService) WithRetrier(r *retry.Retrier) *BookingOrchestratorService {
	s.retrier = r
	return s
}

// CreateBooking runs one booking attempt to a terminal outcome. Once the
// provider call has been made the attempt always runs to completion;
// abandoning midway would strand external state with no report.
func (s *BookingOrchestratorService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest, meta BookingRequestMeta) (*PipelineOutcome, error) {
	// 1. Kill switch: reject before any external call
	if s.config.Disabled {
		return nil, models.NewBookingError(models.ErrCodeServiceUnavailable,
			"Booking is temporarily disabled for maintenance.", nil)
	}

	// 2. Validate before anything leaves this process
	if err := req.Validate(); err != nil {
		return nil, models.NewBookingError(models.ErrCodeInvalidData, err.Error(), err)
	}

	// 3. Generate and log the booking reference first. Every later failure
	// path reports this reference, so it must exist before any external call.
	reference, err := s.references.Generate()
	if err != nil {
		return nil, models.NewBookingError(models.ErrCodeBookingFailed, "", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_reference": reference,
		"offer_id":          req.Offer.ID,
		"source_api":        req.Offer.Source,
		"passenger_count":   len(req.Passengers),
	}).Info("Booking attempt started")

	// 4. Price the offers, skipping markup where it was already applied
	// upstream. A separate-ticket return leg is always priced here.
	var priced models.PricedOffer
	if req.PricedOffer != nil && req.PricedOffer.AlreadyPriced() {
		priced = *req.PricedOffer
		priced.Offer = *req.Offer
	} else {
		priced = s.markup.Apply(req.Offer)
	}

	var returnPriced *models.PricedOffer
	if req.ReturnOffer != nil {
		rp := s.markup.Apply(req.ReturnOffer)
		returnPriced = &rp
	}

	// 5. Reconcile freshness of every offer being committed
	priced, err = s.reconciler.Reconcile(ctx, priced)
	if err != nil {
		return nil, err
	}
	if returnPriced != nil {
		rp, rerr := s.reconciler.Reconcile(ctx, *returnPriced)
		if rerr != nil {
			return nil, rerr
		}
		returnPriced = &rp
	}

	// Separate-ticket trips are charged as one amount covering both legs
	trip := priced
	if returnPriced != nil {
		trip.NetPrice += returnPriced.NetPrice
		trip.CustomerPrice += returnPriced.CustomerPrice
		trip.MarkupAmount += returnPriced.MarkupAmount
	}

	// 6. Route to a channel on the full trip amount
	decision := s.router.Decide(trip.NetPrice, req.Offer.Source)

	s.logger.WithFields(logrus.Fields{
		"booking_reference": reference,
		"channel":           decision.Channel,
		"routing_reason":    decision.Reason,
		"net_price":         trip.NetPrice,
	}).Info("Routing decision made")

	outcome := &PipelineOutcome{
		Booking: s.newAttempt(reference, req, meta, trip, decision),
	}
	outcome.TotalPrice = trip.CustomerPrice + req.FareUpgrade + req.Bundle + req.AddOnsTotal()

	// 7. Provider booking, always before payment
	coordination, err := s.coordinator.Book(ctx, CoordinateParams{
		BookingReference:  reference,
		Offer:             req.Offer,
		ReturnOffer:       req.ReturnOffer,
		Decision:          decision,
		Passengers:        req.Passengers,
		ContactEmail:      req.ContactInfo.Email,
		ContactPhone:      req.ContactInfo.Phone,
		IsHold:            req.IsHold,
		HoldDurationHours: req.HoldDurationHours,
	})
	if err != nil {
		s.alertBookingFailure(ctx, reference, err)
		return nil, err
	}

	s.applyCoordination(outcome, coordination)

	// 8. Payment, only for paid instant bookings
	if s.shouldCollectPayment(outcome) {
		s.collectPayment(ctx, req, outcome)
	}

	// 9. Persist exactly once, with retries. Exhaustion is the orphaned
	// booking condition.
	if err := s.persist(ctx, outcome); err != nil {
		return outcome, err
	}

	// 10. Fraud-signal record for manual card capture, never blocking
	s.recordCardAuth(req, meta, outcome)

	// 11. Post-persist operator notifications
	s.notifyOutcome(ctx, outcome)

	s.logger.WithFields(logrus.Fields{
		"booking_reference": reference,
		"pnr":               outcome.Booking.PNR(),
		"payment_status":    outcome.Booking.PaymentStatus,
		"ticketing_status":  outcome.Booking.TicketingStatus,
	}).Info("Booking attempt completed")

	return outcome, nil
}

// newAttempt builds the in-memory BookingAttempt seed
func (s *BookingOrchestratorService) newAttempt(reference string, req *models.CreateBookingRequest, meta BookingRequestMeta, priced models.PricedOffer, decision models.RoutingDecision) *models.BookingAttempt {
	return &models.BookingAttempt{
		BookingReference: reference,
		UserID:           meta.UserID,
		SourceAPI:        req.Offer.Source,
		Channel:          decision.Channel,
		RoutingReason:    decision.Reason,
		BookingStatus:    models.BookingStatusPending,
		PaymentStatus:    models.PaymentStatusPending,
		TicketingStatus:  models.TicketingStatusNone,
		NetPrice:         priced.NetPrice,
		CustomerPrice:    priced.CustomerPrice,
		MarkupAmount:     priced.MarkupAmount,
		Currency:         priced.Currency,
		IsHold:           req.IsHold,
		ContactEmail:     req.ContactInfo.Email,
		ContactPhone:     req.ContactInfo.Phone,
		PassengerCount:   len(req.Passengers),
		OfferID:          req.Offer.ID,
		OriginAirport:    req.Offer.Origin(),
		DestAirport:      req.Offer.Destination(),
	}
}

// applyCoordination copies provider identifiers onto the attempt
func (s *BookingOrchestratorService) applyCoordination(outcome *PipelineOutcome, result *CoordinateResult) {
	booking := outcome.Booking

	if result.OrderID != "" {
		booking.ProviderOrderID = &result.OrderID
	}
	if result.RecordLocator != "" {
		locator := result.RecordLocator
		booking.RecordLocator = &locator
	}
	booking.TicketingStatus = result.TicketingStatus

	if result.Hold != nil {
		outcome.Hold = result.Hold
		booking.HoldFee = result.Hold.Fee
		expiresAt := result.Hold.ExpiresAt
		booking.HoldExpiresAt = &expiresAt
	}
}

// shouldCollectPayment gates the payment stage: instant channel only, not a
// hold, not awaiting manual ticketing
func (s *BookingOrchestratorService) shouldCollectPayment(outcome *PipelineOutcome) bool {
	b := outcome.Booking
	return b.Channel == models.ChannelInstant &&
		!b.IsHold &&
		b.TicketingStatus == models.TicketingStatusNone
}

// collectPayment creates the payment intent. A failure here is deliberately
// soft: the airline-side booking already exists and cannot be cheaply
// undone, so the pipeline continues to persistence with payment pending and
// flags the anomaly instead of aborting.
func (s *BookingOrchestratorService) collectPayment(ctx context.Context, req *models.CreateBookingRequest, outcome *PipelineOutcome) {
	booking := outcome.Booking

	orderID := ""
	if booking.ProviderOrderID != nil {
		orderID = *booking.ProviderOrderID
	}

	if !s.payments.IsConfigured() {
		s.logger.WithField("booking_reference", booking.BookingReference).
			Warn("Payment processor not configured, continuing with payment pending")
		s.paymentPending(ctx, outcome, orderID,
			"Payment processor not configured. Collect payment manually.")
		return
	}

	auth, err := s.payments.CreateIntent(ctx, CreateIntentParams{
		Amount:           outcome.TotalPrice,
		Currency:         booking.Currency,
		BookingReference: booking.BookingReference,
		ProviderOrderID:  orderID,
		CustomerEmail:    booking.ContactEmail,
		Description:      "Flight booking " + booking.BookingReference,
	})
	if err != nil {
		s.logger.WithError(err).WithField("booking_reference", booking.BookingReference).
			Error("Payment setup failed, continuing with payment pending")
		s.paymentPending(ctx, outcome, orderID,
			"Payment setup failed after provider booking. Collect payment manually.")
		return
	}

	outcome.Payment = auth
	booking.PaymentIntentID = &auth.IntentID
}

// paymentPending marks the soft-fail condition and raises the urgent
// manual-collection alert
func (s *BookingOrchestratorService) paymentPending(ctx context.Context, outcome *PipelineOutcome, orderID, message string) {
	outcome.PaymentSoftFailed = true

	s.alerts.Notify(ctx, models.Alert{
		Kind:             models.AlertKindPaymentPending,
		Priority:         models.AlertPriorityUrgent,
		BookingReference: outcome.Booking.BookingReference,
		Message:          message,
		Details: map[string]string{
			"provider_order_id": orderID,
			"amount":            formatAmount(outcome.TotalPrice, outcome.Booking.Currency),
		},
	})
}

// persist writes the attempt with bounded retries. Exhaustion raises exactly
// one urgent orphaned-booking alert and returns a failure carrying the same
// recovery identifiers handed to operators.
func (s *BookingOrchestratorService) persist(ctx context.Context, outcome *PipelineOutcome) error {
	booking := outcome.Booking

	err := s.retrier.Do(ctx, func(_ context.Context) error {
		return s.store.Upsert(booking)
	})
	if err == nil {
		return nil
	}

	recovery := outcome.RecoveryInfo()

	s.logger.WithError(err).WithFields(logrus.Fields{
		"booking_reference": booking.BookingReference,
		"provider_order_id": recovery.ProviderOrderID,
		"pnr":               recovery.PNR,
	}).Error("Booking persistence exhausted retries, orphaned booking")

	s.alerts.Notify(ctx, models.Alert{
		Kind:             models.AlertKindOrphanedBooking,
		Priority:         models.AlertPriorityUrgent,
		BookingReference: booking.BookingReference,
		Message:          "Booking exists with provider but could not be saved. Manual reconciliation required.",
		Details: map[string]string{
			"provider_order_id": recovery.ProviderOrderID,
			"pnr":               recovery.PNR,
			"payment_intent_id": recovery.PaymentIntentID,
			"contact_email":     recovery.ContactEmail,
		},
	})

	return &models.BookingError{
		Code:     models.ErrCodeBookingFailed,
		Message:  "Your reservation was made but we could not confirm it. Contact support with reference " + booking.BookingReference + ".",
		Recovery: recovery,
		Cause:    err,
	}
}

// recordCardAuth stores the fraud-signal record for manual card capture.
// Failure is logged and never propagated.
func (s *BookingOrchestratorService) recordCardAuth(req *models.CreateBookingRequest, meta BookingRequestMeta, outcome *PipelineOutcome) {
	if req.Payment.Method != "manual_capture" {
		return
	}

	auth := &models.CardAuthorization{
		BookingReference: outcome.Booking.BookingReference,
		CardholderName:   req.Payment.CardholderName,
		CardLastFour:     req.Payment.CardLastFour,
		CardBrand:        req.Payment.CardBrand,
		IPAddress:        meta.IPAddress,
		DeviceOS:         meta.DeviceOS,
		DeviceBrowser:    meta.DeviceBrowser,
		IsMobile:         meta.IsMobile,
	}

	if err := s.cardAuths.Create(auth); err != nil {
		s.logger.WithError(err).WithField("booking_reference", outcome.Booking.BookingReference).
			Warn("Failed to record card authorization")
	}
}

// notifyOutcome raises the routine post-booking operator notifications
func (s *BookingOrchestratorService) notifyOutcome(ctx context.Context, outcome *PipelineOutcome) {
	booking := outcome.Booking

	if booking.RequiresManualTicketing() {
		s.alerts.Notify(ctx, models.Alert{
			Kind:             models.AlertKindManualTicketing,
			Priority:         models.AlertPriorityHigh,
			BookingReference: booking.BookingReference,
			Message:          "Consolidator booking awaiting manual ticketing.",
			Details: map[string]string{
				"route":  booking.OriginAirport + "-" + booking.DestAirport,
				"amount": formatAmount(outcome.TotalPrice, booking.Currency),
			},
		})
		return
	}

	if booking.IsHold {
		s.alerts.Notify(ctx, models.Alert{
			Kind:             models.AlertKindHoldPlaced,
			Priority:         models.AlertPriorityNormal,
			BookingReference: booking.BookingReference,
			Message:          "Hold booking placed.",
		})
		return
	}

	s.alerts.Notify(ctx, models.Alert{
		Kind:             models.AlertKindBookingConfirmed,
		Priority:         models.AlertPriorityNormal,
		BookingReference: booking.BookingReference,
		Message:          "Booking placed: " + booking.OriginAirport + "-" + booking.DestAirport,
	})
}

// alertBookingFailure escalates provider failures. Configuration and shape
// problems are critical; ordinary availability conditions are high.
func (s *BookingOrchestratorService) alertBookingFailure(ctx context.Context, reference string, err error) {
	be := models.AsBookingError(err)

	priority := models.AlertPriorityHigh
	if be.Code == models.ErrCodeBookingFailed || be.Code == models.ErrCodeSeparateTicketFailed {
		priority = models.AlertPriorityCritical
	}

	s.alerts.Notify(ctx, models.Alert{
		Kind:             models.AlertKindProviderFailed,
		Priority:         priority,
		BookingReference: reference,
		Message:          "Provider booking failed: " + string(be.Code),
	})
}

func formatAmount(amount float64, currency string) string {
	return currency + " " + strconv.FormatFloat(amount, 'f', 2, 64)
}
