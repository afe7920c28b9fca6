package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/airvoya/booking-backend/internal/pricing"
	"github.com/airvoya/booking-backend/internal/providers"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGDS struct {
	confirmNet float64
	confirmErr error
	calls      int
}

func (f *fakeGDS) CreateOrder(_ context.Context, _ providers.OrderRequest) (*providers.OrderResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeGDS) ConfirmPrice(_ context.Context, offer *models.Offer) (*providers.PriceConfirmation, error) {
	f.calls++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &providers.PriceConfirmation{NetPrice: f.confirmNet, Currency: offer.Price.Currency}, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupReconcileTest(gds *fakeGDS) *ReconcileService {
	logger := testLogger()
	alerts := NewAlertService(nil, nil, nil, logger)
	markup := pricing.NewEngine(config.MarkupConfig{Percentage: 0.07})
	return NewReconcileService(gds, markup, alerts, logger)
}

func pricedInstant(expiresAt *time.Time, retrievedAt time.Time) models.PricedOffer {
	return models.PricedOffer{
		Offer: models.Offer{
			ID:          "off_instant",
			Source:      models.SourceInstant,
			Itineraries: []models.Itinerary{{}},
			Price:       models.OfferPrice{Total: 300, Currency: "USD"},
			ExpiresAt:   expiresAt,
			RetrievedAt: retrievedAt,
		},
		NetPrice:      300,
		CustomerPrice: 321,
		MarkupAmount:  21,
		Currency:      "USD",
	}
}

func pricedGDS(net float64) models.PricedOffer {
	return models.PricedOffer{
		Offer: models.Offer{
			ID:          "off_gds",
			Source:      models.SourceGDS,
			Itineraries: []models.Itinerary{{}},
			Price:       models.OfferPrice{Total: net, Currency: "USD"},
		},
		NetPrice:      net,
		CustomerPrice: net * 1.07,
		Currency:      "USD",
	}
}

func TestReconcile_InstantOfferStillValid(t *testing.T) {
	gds := &fakeGDS{}
	service := setupReconcileTest(gds)

	expires := time.Now().Add(20 * time.Minute)
	_, err := service.Reconcile(context.Background(), pricedInstant(&expires, time.Time{}))

	assert.NoError(t, err)
	assert.Zero(t, gds.calls, "instant offers must not trigger a GDS call")
}

func TestReconcile_InstantOfferExpired(t *testing.T) {
	service := setupReconcileTest(&fakeGDS{})

	expires := time.Now().Add(-time.Minute)
	_, err := service.Reconcile(context.Background(), pricedInstant(&expires, time.Time{}))

	require.Error(t, err)
	be := models.AsBookingError(err)
	assert.Equal(t, models.ErrCodeOfferExpired, be.Code)
}

func TestReconcile_InstantOfferAssumedValidityWindow(t *testing.T) {
	service := setupReconcileTest(&fakeGDS{})

	// No embedded expiry: a 30-minute validity from retrieval is assumed
	fresh := pricedInstant(nil, time.Now().Add(-10*time.Minute))
	_, err := service.Reconcile(context.Background(), fresh)
	assert.NoError(t, err)

	stale := pricedInstant(nil, time.Now().Add(-31*time.Minute))
	_, err = service.Reconcile(context.Background(), stale)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeOfferExpired, models.AsBookingError(err).Code)
}

func TestReconcile_GDSPriceUnchanged(t *testing.T) {
	gds := &fakeGDS{confirmNet: 750.00}
	service := setupReconcileTest(gds)

	priced, err := service.Reconcile(context.Background(), pricedGDS(750.00))

	assert.NoError(t, err)
	assert.Equal(t, 1, gds.calls)
	assert.Equal(t, 750.00, priced.NetPrice)
}

func TestReconcile_GDSPriceWithinTolerance(t *testing.T) {
	// Drift of exactly $1.00 is inclusive and treated as unchanged
	gds := &fakeGDS{confirmNet: 751.00}
	service := setupReconcileTest(gds)

	_, err := service.Reconcile(context.Background(), pricedGDS(750.00))

	assert.NoError(t, err)
}

func TestReconcile_GDSPriceChangedBeyondTolerance(t *testing.T) {
	gds := &fakeGDS{confirmNet: 751.01}
	service := setupReconcileTest(gds)

	_, err := service.Reconcile(context.Background(), pricedGDS(750.00))

	require.Error(t, err)
	be := models.AsBookingError(err)
	assert.Equal(t, models.ErrCodePriceChanged, be.Code)

	// The rejection carries both customer prices so the caller can show
	// the delta
	require.NotNil(t, be.PriceChange)
	assert.InDelta(t, 802.50, be.PriceChange.OldPrice, 0.01)
	assert.InDelta(t, 803.58, be.PriceChange.NewPrice, 0.01)
	assert.Equal(t, "USD", be.PriceChange.Currency)
}

func TestReconcile_GDSRepriceUnavailableFallsBack(t *testing.T) {
	gds := &fakeGDS{confirmErr: errors.New("pricing endpoint down")}
	service := setupReconcileTest(gds)

	priced, err := service.Reconcile(context.Background(), pricedGDS(750.00))

	// Availability wins over staleness: the original quote is kept
	assert.NoError(t, err)
	assert.Equal(t, 750.00, priced.NetPrice)
}

func TestReconcile_UnknownSourceRejected(t *testing.T) {
	service := setupReconcileTest(&fakeGDS{})

	bad := pricedGDS(100)
	bad.Offer.Source = "charter"

	_, err := service.Reconcile(context.Background(), bad)

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidData, models.AsBookingError(err).Code)
}
