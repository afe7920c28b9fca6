package models

import "time"

// AlertPriority orders operator alerts by urgency
type AlertPriority string

const (
	AlertPriorityCritical AlertPriority = "critical"
	AlertPriorityUrgent   AlertPriority = "urgent"
	AlertPriorityHigh     AlertPriority = "high"
	AlertPriorityNormal   AlertPriority = "normal"
)

// Alert kinds emitted by the booking pipeline
const (
	AlertKindOrphanedBooking  = "orphaned_booking"
	AlertKindManualTicketing  = "manual_ticketing_required"
	AlertKindRepriceFailed    = "reprice_unavailable"
	AlertKindPaymentPending   = "payment_pending"
	AlertKindPaymentFailed    = "payment_failed"
	AlertKindHoldPlaced       = "hold_placed"
	AlertKindBookingConfirmed = "booking_confirmed"
	AlertKindProviderFailed   = "provider_booking_failed"
)

// Alert is an operator notification queued for asynchronous delivery.
// Delivery failures never affect the booking that produced the alert.
type Alert struct {
	ID               string            `json:"id"`
	Kind             string            `json:"kind"`
	Priority         AlertPriority     `json:"priority"`
	BookingReference string            `json:"booking_reference,omitempty"`
	Message          string            `json:"message"`
	Details          map[string]string `json:"details,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}
