// Package pricing converts net (wholesale) fares into customer-facing
// prices and computes hold fees.
package pricing

import (
	"math"

	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/models"
)

// Engine applies the configured markup rule to net fares
type Engine struct {
	percentage float64
	flatFee    float64
}

// NewEngine creates an Engine from config. Negative values clamp to zero so
// a misconfigured rule can never price below net.
func NewEngine(cfg config.MarkupConfig) *Engine {
	pct := cfg.Percentage
	if pct < 0 {
		pct = 0
	}
	flat := cfg.FlatFee
	if flat < 0 {
		flat = 0
	}
	return &Engine{percentage: pct, flatFee: flat}
}

// Apply prices an offer from its net fare. Calling Apply on an offer that is
// already priced returns it unchanged, so replaying a priced offer from an
// earlier search step never double-marks-up.
func (e *Engine) Apply(offer *models.Offer) models.PricedOffer {
	net := offer.Price.Total
	markup := round2(net*e.percentage + e.flatFee)

	return models.PricedOffer{
		Offer:            *offer,
		NetPrice:         net,
		CustomerPrice:    round2(net + markup),
		MarkupAmount:     markup,
		MarkupPercentage: e.percentage,
		Currency:         offer.Price.Currency,
	}
}

// Reprice recomputes the customer price for a new net fare, preserving the
// original markup rule
func (e *Engine) Reprice(priced models.PricedOffer, newNet float64) models.PricedOffer {
	markup := round2(newNet*e.percentage + e.flatFee)
	priced.NetPrice = newNet
	priced.MarkupAmount = markup
	priced.CustomerPrice = round2(newNet + markup)
	return priced
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
