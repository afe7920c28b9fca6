package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/airvoya/booking-backend/internal/models"
	"github.com/airvoya/booking-backend/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInstant struct {
	mu       sync.Mutex
	requests []providers.OrderRequest
	results  map[string]*providers.OrderResult
	errs     map[string]error
}

func (s *stubInstant) CreateOrder(_ context.Context, req providers.OrderRequest) (*providers.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := s.errs[req.Offer.ID]; err != nil {
		return nil, err
	}
	if r, ok := s.results[req.Offer.ID]; ok {
		return r, nil
	}
	return &providers.OrderResult{OrderID: "ord_" + req.Offer.ID, RecordLocator: "LOC" + req.Offer.ID}, nil
}

type stubGDS struct {
	stubInstant
}

func (s *stubGDS) ConfirmPrice(_ context.Context, offer *models.Offer) (*providers.PriceConfirmation, error) {
	return &providers.PriceConfirmation{NetPrice: offer.Price.Total, Currency: offer.Price.Currency}, nil
}

func coordinatorOffer(id string, source models.OfferSource) *models.Offer {
	return &models.Offer{
		ID:          id,
		Source:      source,
		Itineraries: []models.Itinerary{{}},
		Price:       models.OfferPrice{Total: 300, Currency: "USD"},
	}
}

func instantParams(offer *models.Offer) CoordinateParams {
	return CoordinateParams{
		BookingReference: "AVY-TEST01",
		Offer:            offer,
		Decision:         models.RoutingDecision{Channel: models.ChannelInstant, Reason: "under_threshold_instant_ancillary"},
		Passengers:       []models.Passenger{{FirstName: "Ana", LastName: "Silva"}},
		ContactEmail:     "ana@example.com",
	}
}

func TestBook_InstantChannel(t *testing.T) {
	instant := &stubInstant{}
	coordinator := NewBookingCoordinator(instant, &stubGDS{}, testLogger())

	result, err := coordinator.Book(context.Background(), instantParams(coordinatorOffer("out1", models.SourceInstant)))
	require.NoError(t, err)

	assert.Equal(t, "ord_out1", result.OrderID)
	assert.Equal(t, "LOCout1", result.RecordLocator)
	assert.Equal(t, models.TicketingStatusNone, result.TicketingStatus)
	assert.Nil(t, result.Hold)
	assert.Len(t, instant.requests, 1)
}

func TestBook_DispatchesBySource(t *testing.T) {
	instant := &stubInstant{}
	gds := &stubGDS{}
	coordinator := NewBookingCoordinator(instant, gds, testLogger())

	_, err := coordinator.Book(context.Background(), instantParams(coordinatorOffer("g1", models.SourceGDS)))
	require.NoError(t, err)

	assert.Empty(t, instant.requests)
	assert.Len(t, gds.requests, 1)
}

func TestBook_ManualChannelMakesNoProviderCall(t *testing.T) {
	instant := &stubInstant{}
	gds := &stubGDS{}
	coordinator := NewBookingCoordinator(instant, gds, testLogger())

	params := instantParams(coordinatorOffer("m1", models.SourceGDS))
	params.Decision = models.RoutingDecision{Channel: models.ChannelManual, Reason: "over_threshold_consolidator"}

	result, err := coordinator.Book(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, models.PendingRecordLocator, result.RecordLocator)
	assert.Equal(t, models.TicketingStatusPending, result.TicketingStatus)
	assert.Empty(t, result.OrderID)
	assert.Empty(t, instant.requests)
	assert.Empty(t, gds.requests)
}

func TestBook_SeparateTicketsBothLegs(t *testing.T) {
	instant := &stubInstant{}
	coordinator := NewBookingCoordinator(instant, &stubGDS{}, testLogger())

	params := instantParams(coordinatorOffer("out1", models.SourceInstant))
	params.ReturnOffer = coordinatorOffer("ret1", models.SourceInstant)

	result, err := coordinator.Book(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, "ord_out1/ord_ret1", result.OrderID)
	assert.Equal(t, "LOCout1/LOCret1", result.RecordLocator)
	assert.Len(t, instant.requests, 2)
}

func TestBook_SeparateTicketFailureDoesNotCancelSucceededLeg(t *testing.T) {
	instant := &stubInstant{
		errs: map[string]error{"ret1": models.NewBookingError(models.ErrCodeSoldOut, "", nil)},
	}
	coordinator := NewBookingCoordinator(instant, &stubGDS{}, testLogger())

	params := instantParams(coordinatorOffer("out1", models.SourceInstant))
	params.ReturnOffer = coordinatorOffer("ret1", models.SourceInstant)

	_, err := coordinator.Book(context.Background(), params)
	require.Error(t, err)

	be := models.AsBookingError(err)
	assert.Equal(t, models.ErrCodeSeparateTicketFailed, be.Code)

	// Both legs were attempted; the succeeded outbound is never auto-cancelled
	assert.Len(t, instant.requests, 2)
}

func TestBook_HoldSetsExpiryOnOrder(t *testing.T) {
	instant := &stubInstant{}
	coordinator := NewBookingCoordinator(instant, &stubGDS{}, testLogger())
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	coordinator.now = func() time.Time { return fixed }

	params := instantParams(coordinatorOffer("h1", models.SourceInstant))
	params.IsHold = true
	params.HoldDurationHours = 24

	result, err := coordinator.Book(context.Background(), params)
	require.NoError(t, err)

	require.NotNil(t, result.Hold)
	assert.Equal(t, 39.99, result.Hold.Fee)
	assert.Equal(t, fixed.Add(24*time.Hour), result.Hold.ExpiresAt)

	require.Len(t, instant.requests, 1)
	assert.True(t, instant.requests[0].Hold)
	assert.Equal(t, "2025-06-02T12:00:00Z", instant.requests[0].HoldExpiresAt)
}

func TestBook_UnknownSourceRejected(t *testing.T) {
	coordinator := NewBookingCoordinator(&stubInstant{}, &stubGDS{}, testLogger())

	params := instantParams(coordinatorOffer("x1", "charter"))

	_, err := coordinator.Book(context.Background(), params)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidData, models.AsBookingError(err).Code)

	var be *models.BookingError
	assert.True(t, errors.As(err, &be))
}
