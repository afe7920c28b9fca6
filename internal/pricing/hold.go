package pricing

import "time"

// MaxHoldHours caps how long a reservation can be held unpaid
const MaxHoldHours = 72

// HoldPricing is the computed fee and expiry for a hold booking
type HoldPricing struct {
	Fee           float64   `json:"fee"`
	DurationHours int       `json:"duration_hours"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// HoldFee computes the tiered fee and expiry for holding a reservation
// unpaid. Durations beyond the cap are shortened, not rejected.
func HoldFee(durationHours int, now time.Time) HoldPricing {
	if durationHours > MaxHoldHours {
		durationHours = MaxHoldHours
	}
	if durationHours < 1 {
		durationHours = 1
	}

	var fee float64
	switch {
	case durationHours <= 6:
		fee = 19.99
	case durationHours <= 24:
		fee = 39.99
	case durationHours <= 48:
		fee = 59.99
	default:
		fee = 89.99
	}

	return HoldPricing{
		Fee:           fee,
		DurationHours: durationHours,
		ExpiresAt:     now.Add(time.Duration(durationHours) * time.Hour),
	}
}
