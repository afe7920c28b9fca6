package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// zeroDecimalCurrencies are charged in whole units rather than cents
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
	"CLP": true,
	"PYG": true,
	"UGX": true,
	"RWF": true,
}

// PaymentService creates payment intents with the card processor
type PaymentService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(cfg *config.PaymentConfig, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// IsConfigured reports whether processor credentials are present
func (s *PaymentService) IsConfigured() bool {
	return s.config.SecretKey != ""
}

// CreateIntentParams contains everything needed to authorize a charge
type CreateIntentParams struct {
	Amount           float64
	Currency         string
	BookingReference string
	ProviderOrderID  string
	CustomerEmail    string
	Description      string
}

type paymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Error        *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CreateIntent creates a payment intent tagged with the booking reference
// and provider order id, so the webhook can reconcile without a lookup. The
// booking reference doubles as the idempotency key: a retried call for the
// same booking never produces a second charge.
func (s *PaymentService) CreateIntent(ctx context.Context, params CreateIntentParams) (*models.PaymentAuthorization, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(ToMinorUnits(params.Amount, params.Currency), 10))
	form.Set("currency", strings.ToLower(params.Currency))
	form.Set("description", params.Description)
	form.Set("receipt_email", params.CustomerEmail)
	form.Set("metadata[bookingReference]", params.BookingReference)
	form.Set("metadata[providerOrderId]", params.ProviderOrderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", "booking_"+params.BookingReference)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment intent request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var intent paymentIntentResponse
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := "payment intent creation failed"
		if intent.Error != nil {
			msg = intent.Error.Message
		}
		return nil, fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
	}

	s.logger.WithFields(logrus.Fields{
		"intent_id":         intent.ID,
		"booking_reference": params.BookingReference,
		"amount":            intent.Amount,
		"currency":          intent.Currency,
	}).Info("Payment intent created")

	return &models.PaymentAuthorization{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       models.PaymentIntentStatus(intent.Status),
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyWebhook checks the HMAC signature and decodes the event payload
func (s *PaymentService) VerifyWebhook(payload []byte, signature string) (*models.WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(s.config.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("invalid webhook signature")
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	return &models.WebhookEvent{
		ID:       envelope.ID,
		Type:     envelope.Type,
		IntentID: envelope.Data.Object.ID,
		Metadata: envelope.Data.Object.Metadata,
	}, nil
}

// ToMinorUnits converts an amount to the processor's integer representation.
// Zero-decimal currencies charge whole units; everything else charges cents.
func ToMinorUnits(amount float64, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}
