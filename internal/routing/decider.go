// Package routing selects the booking channel for a priced offer.
package routing

import (
	"github.com/airvoya/booking-backend/internal/config"
	"github.com/airvoya/booking-backend/internal/models"
)

// Decider routes offers between the instant-ticketing provider and the
// manual consolidator channel
type Decider struct {
	threshold float64
}

// NewDecider creates a Decider with the configured price threshold
func NewDecider(cfg config.RoutingConfig) *Decider {
	return &Decider{threshold: cfg.InstantThreshold}
}

// Decide picks a channel from the net price and the offer's source. It is a
// pure function: cheap fares go instant for the ancillary opportunity,
// expensive fares go to the consolidator unless the offer already came from
// the instant provider.
func (d *Decider) Decide(netPrice float64, source models.OfferSource) models.RoutingDecision {
	switch {
	case netPrice < d.threshold:
		return models.RoutingDecision{
			Channel: models.ChannelInstant,
			Reason:  "under_threshold_instant_ancillary",
		}
	case source == models.SourceInstant:
		return models.RoutingDecision{
			Channel: models.ChannelInstant,
			Reason:  "instant_sourced_stays_instant",
		}
	case netPrice >= d.threshold:
		return models.RoutingDecision{
			Channel: models.ChannelManual,
			Reason:  "over_threshold_consolidator",
		}
	default:
		return models.RoutingDecision{
			Channel: models.ChannelInstant,
			Reason:  "default_instant",
		}
	}
}
