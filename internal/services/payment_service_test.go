package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPaymentTest(handler http.HandlerFunc) (*PaymentService, *httptest.Server) {
	server := httptest.NewServer(handler)
	cfg := &config.PaymentConfig{
		BaseURL:       server.URL,
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		Timeout:       5 * time.Second,
	}
	return NewPaymentService(cfg, testLogger()), server
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   float64
		currency string
		want     int64
	}{
		{321.00, "USD", 32100},
		{321.50, "usd", 32150},
		{0.01, "EUR", 1},
		{32100, "JPY", 32100},
		{1500, "KRW", 1500},
		{250000, "VND", 250000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToMinorUnits(tt.amount, tt.currency),
			"%v %s", tt.amount, tt.currency)
	}
}

func TestCreateIntent_Success(t *testing.T) {
	var gotIdempotencyKey, gotAuth string
	var gotForm map[string][]string

	service, server := setupPaymentTest(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payment_intents", r.URL.Path)
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret","status":"requires_payment_method","amount":34500,"currency":"usd"}`))
	})
	defer server.Close()

	auth, err := service.CreateIntent(context.Background(), CreateIntentParams{
		Amount:           345.00,
		Currency:         "USD",
		BookingReference: "AVY-K7M2XQ",
		ProviderOrderID:  "ord_abc",
		CustomerEmail:    "traveler@example.com",
		Description:      "Flight booking AVY-K7M2XQ",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_123", auth.IntentID)
	assert.Equal(t, "pi_123_secret", auth.ClientSecret)
	assert.Equal(t, models.IntentStatusRequiresPayment, auth.Status)
	assert.Equal(t, int64(34500), auth.Amount)

	assert.Equal(t, "booking_AVY-K7M2XQ", gotIdempotencyKey)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, "34500", gotForm["amount"][0])
	assert.Equal(t, "usd", gotForm["currency"][0])
	assert.Equal(t, "AVY-K7M2XQ", gotForm["metadata[bookingReference]"][0])
	assert.Equal(t, "ord_abc", gotForm["metadata[providerOrderId]"][0])
}

func TestCreateIntent_ProcessorError(t *testing.T) {
	service, server := setupPaymentTest(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	})
	defer server.Close()

	_, err := service.CreateIntent(context.Background(), CreateIntentParams{
		Amount:           100,
		Currency:         "USD",
		BookingReference: "AVY-TEST01",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your card was declined.")
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook_ValidSignature(t *testing.T) {
	service, server := setupPaymentTest(nil)
	defer server.Close()

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","metadata":{"bookingReference":"AVY-K7M2XQ"}}}}`)

	event, err := service.VerifyWebhook(payload, signPayload("whsec_test", payload))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, models.WebhookPaymentSucceeded, event.Type)
	assert.Equal(t, "pi_123", event.IntentID)
	assert.Equal(t, "AVY-K7M2XQ", event.Metadata["bookingReference"])
}

func TestVerifyWebhook_InvalidSignature(t *testing.T) {
	service, server := setupPaymentTest(nil)
	defer server.Close()

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)

	_, err := service.VerifyWebhook(payload, "deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid webhook signature")
}

func TestVerifyWebhook_TamperedPayload(t *testing.T) {
	service, server := setupPaymentTest(nil)
	defer server.Close()

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	sig := signPayload("whsec_test", payload)

	tampered := []byte(`{"id":"evt_1","type":"payment_intent.payment_failed"}`)
	_, err := service.VerifyWebhook(tampered, sig)
	require.Error(t, err)
}

func TestIsConfigured(t *testing.T) {
	logger := testLogger()

	configured := NewPaymentService(&config.PaymentConfig{SecretKey: "sk_x", Timeout: time.Second}, logger)
	assert.True(t, configured.IsConfigured())

	unconfigured := NewPaymentService(&config.PaymentConfig{Timeout: time.Second}, logger)
	assert.False(t, unconfigured.IsConfigured())
}
