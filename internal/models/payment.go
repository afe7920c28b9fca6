package models

import "time"

// PaymentIntentStatus mirrors the processor's intent lifecycle
type PaymentIntentStatus string

const (
	IntentStatusRequiresPayment PaymentIntentStatus = "requires_payment_method"
	IntentStatusProcessing      PaymentIntentStatus = "processing"
	IntentStatusSucceeded       PaymentIntentStatus = "succeeded"
	IntentStatusFailed          PaymentIntentStatus = "failed"
)

// PaymentAuthorization is the result of creating a payment intent with the
// processor. ClientSecret goes back to the frontend to complete confirmation.
type PaymentAuthorization struct {
	IntentID     string              `json:"intent_id"`
	ClientSecret string              `json:"client_secret"`
	Status       PaymentIntentStatus `json:"status"`
	Amount       int64               `json:"amount"`
	Currency     string              `json:"currency"`
}

// CardAuthorization is a masked fraud-signal record captured for manual
// payment flows. No full card number is ever accepted or stored.
type CardAuthorization struct {
	ID               string    `json:"id" db:"id"`
	BookingReference string    `json:"booking_reference" db:"booking_reference"`
	CardholderName   string    `json:"cardholder_name" db:"cardholder_name"`
	CardLastFour     string    `json:"card_last_four" db:"card_last_four"`
	CardBrand        string    `json:"card_brand" db:"card_brand"`
	IPAddress        string    `json:"ip_address" db:"ip_address"`
	DeviceOS         string    `json:"device_os" db:"device_os"`
	DeviceBrowser    string    `json:"device_browser" db:"device_browser"`
	IsMobile         bool      `json:"is_mobile" db:"is_mobile"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// WebhookEvent is the processor's webhook envelope after signature
// verification
type WebhookEvent struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	IntentID string            `json:"intent_id"`
	Metadata map[string]string `json:"metadata"`
}

// Webhook event types the reconciler acts on
const (
	WebhookPaymentSucceeded = "payment_intent.succeeded"
	WebhookPaymentFailed    = "payment_intent.payment_failed"
)
