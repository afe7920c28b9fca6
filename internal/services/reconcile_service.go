package services

import (
	"context"
	"math"
	"time"

	"github.com/airvoya/booking-backend/internal/models"
	"github.com/airvoya/booking-backend/internal/pricing"
	"github.com/airvoya/booking-backend/internal/providers"
	"github.com/sirupsen/logrus"
)

const (
	// instantOfferValidity is assumed when an instant offer carries no
	// explicit expiry
	instantOfferValidity = 30 * time.Minute

	// expiryWarningBand logs offers that are close to expiring
	expiryWarningBand = 5 * time.Minute

	// priceTolerance is the inclusive net-price drift treated as unchanged
	priceTolerance = 1.00
)

// ReconcileService verifies that an offer is still bookable at the quoted
// price before any money or inventory is committed
type ReconcileService struct {
	gds    providers.GDSProvider
	markup *pricing.Engine
	alerts *AlertService
	logger *logrus.Logger
	now    func() time.Time
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(gds providers.GDSProvider, markup *pricing.Engine, alerts *AlertService, logger *logrus.Logger) *ReconcileService {
	return &ReconcileService{
		gds:    gds,
		markup: markup,
		alerts: alerts,
		logger: logger,
		now:    time.Now,
	}
}

// Reconcile checks offer freshness. Instant offers validate against their
// embedded expiry; GDS offers are re-priced live. The returned PricedOffer
// carries the confirmed net price.
func (s *ReconcileService) Reconcile(ctx context.Context, priced models.PricedOffer) (models.PricedOffer, error) {
	switch priced.Offer.Source {
	case models.SourceInstant:
		return priced, s.checkInstantExpiry(priced)
	case models.SourceGDS:
		return s.repriceGDS(ctx, priced)
	default:
		return priced, models.NewBookingError(models.ErrCodeInvalidData, "unknown offer source", nil)
	}
}

// checkInstantExpiry validates the embedded expiry of an instant offer.
// Instant provider prices are guaranteed until the expiry, so no network
// call is needed.
func (s *ReconcileService) checkInstantExpiry(priced models.PricedOffer) error {
	now := s.now()

	expiresAt := priced.Offer.ExpiresAt
	if expiresAt == nil {
		assumed := priced.Offer.RetrievedAt.Add(instantOfferValidity)
		expiresAt = &assumed
	}

	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return models.NewBookingError(models.ErrCodeOfferExpired, "", nil)
	}

	if remaining <= expiryWarningBand {
		s.logger.WithFields(logrus.Fields{
			"offer_id":  priced.Offer.ID,
			"remaining": remaining.Round(time.Second).String(),
		}).Warn("Offer close to expiry")
	}

	return nil
}

// repriceGDS makes a live pricing call and compares the confirmed net price
// against the quote. A delta within tolerance is treated as unchanged. When
// the pricing endpoint itself fails, the original offer is used as-is; this
// trades staleness risk for availability and is surfaced to operators.
func (s *ReconcileService) repriceGDS(ctx context.Context, priced models.PricedOffer) (models.PricedOffer, error) {
	confirmation, err := s.gds.ConfirmPrice(ctx, &priced.Offer)
	if err != nil {
		s.logger.WithError(err).WithField("offer_id", priced.Offer.ID).
			Warn("Price confirmation unavailable, proceeding with original offer")
		s.alerts.Notify(ctx, models.Alert{
			Kind:     models.AlertKindRepriceFailed,
			Priority: models.AlertPriorityHigh,
			Message:  "Price confirmation unavailable, booked on original quote: " + priced.Offer.ID,
		})
		return priced, nil
	}

	delta := math.Abs(confirmation.NetPrice - priced.NetPrice)
	if delta > priceTolerance {
		// The rejection carries both customer-facing totals so the caller can
		// show what changed; the new total uses the same markup rule.
		repriced := s.markup.Reprice(priced, confirmation.NetPrice)

		s.logger.WithFields(logrus.Fields{
			"offer_id":     priced.Offer.ID,
			"quoted":       priced.NetPrice,
			"confirmed":    confirmation.NetPrice,
			"old_customer": priced.CustomerPrice,
			"new_customer": repriced.CustomerPrice,
		}).Info("Offer price changed beyond tolerance")

		be := models.NewBookingError(models.ErrCodePriceChanged, "", nil)
		be.PriceChange = &models.PriceChange{
			OldPrice: priced.CustomerPrice,
			NewPrice: repriced.CustomerPrice,
			Currency: priced.Currency,
		}
		return priced, be
	}

	return priced, nil
}
