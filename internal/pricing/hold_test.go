package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHoldFee_Tiers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		hours    int
		wantFee  float64
		wantDur  int
	}{
		{"one hour", 1, 19.99, 1},
		{"tier boundary 6h", 6, 19.99, 6},
		{"just over first tier", 7, 39.99, 7},
		{"tier boundary 24h", 24, 39.99, 24},
		{"just over second tier", 25, 59.99, 25},
		{"tier boundary 48h", 48, 59.99, 48},
		{"just over third tier", 49, 89.99, 49},
		{"at cap", 72, 89.99, 72},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hold := HoldFee(tt.hours, now)
			assert.Equal(t, tt.wantFee, hold.Fee)
			assert.Equal(t, tt.wantDur, hold.DurationHours)
			assert.Equal(t, now.Add(time.Duration(tt.wantDur)*time.Hour), hold.ExpiresAt)
		})
	}
}

func TestHoldFee_CapsDurationAtMax(t *testing.T) {
	now := time.Now()

	hold := HoldFee(96, now)

	assert.Equal(t, MaxHoldHours, hold.DurationHours)
	assert.Equal(t, 89.99, hold.Fee)
	assert.Equal(t, now.Add(72*time.Hour), hold.ExpiresAt)
}

func TestHoldFee_MinimumOneHour(t *testing.T) {
	hold := HoldFee(0, time.Now())

	assert.Equal(t, 1, hold.DurationHours)
	assert.Equal(t, 19.99, hold.Fee)
}
