package models

import (
	"errors"
	"time"
)

// OfferSource identifies which upstream API produced a flight offer
type OfferSource string

const (
	// SourceGDS is the primary pricing-and-ordering API (GDS content)
	SourceGDS OfferSource = "gds"
	// SourceInstant is the secondary NDC API with instant ticketing
	SourceInstant OfferSource = "instant"
)

// CabinClass for a flight segment
type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

// Segment is a single flight leg within an itinerary
type Segment struct {
	Carrier      string     `json:"carrier"`
	FlightNumber string     `json:"flight_number"`
	Origin       string     `json:"origin"`
	Destination  string     `json:"destination"`
	DepartureAt  time.Time  `json:"departure_at"`
	ArrivalAt    time.Time  `json:"arrival_at"`
	Cabin        CabinClass `json:"cabin"`
}

// Itinerary is an ordered sequence of segments (e.g. outbound or return)
type Itinerary struct {
	Segments []Segment `json:"segments"`
}

// OfferPrice is the provider-quoted net (wholesale) amount for an offer
type OfferPrice struct {
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// Offer is an immutable provider-sourced flight proposal.
// Reconciliation never mutates an Offer; it produces a new one.
type Offer struct {
	ID          string      `json:"id"`
	Source      OfferSource `json:"source"`
	Itineraries []Itinerary `json:"itineraries"`
	Price       OfferPrice  `json:"price"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	RetrievedAt time.Time   `json:"retrieved_at,omitempty"`
}

// Validate checks the minimum shape required to attempt a booking
func (o *Offer) Validate() error {
	if o.ID == "" {
		return errors.New("offer id is required")
	}
	if o.Source != SourceGDS && o.Source != SourceInstant {
		return errors.New("offer source must be 'gds' or 'instant'")
	}
	if len(o.Itineraries) == 0 {
		return errors.New("offer must contain at least one itinerary")
	}
	if o.Price.Currency == "" {
		return errors.New("offer price currency is required")
	}
	return nil
}

// Origin returns the departure airport of the first segment
func (o *Offer) Origin() string {
	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return ""
	}
	return o.Itineraries[0].Segments[0].Origin
}

// Destination returns the arrival airport of the first itinerary's last segment
func (o *Offer) Destination() string {
	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return ""
	}
	segs := o.Itineraries[0].Segments
	return segs[len(segs)-1].Destination
}

// PricedOffer is an Offer with the customer-facing price split recorded.
// Invariant: CustomerPrice == NetPrice + MarkupAmount, MarkupAmount >= 0.
// NET and CUSTOMER amounts stay separate through the whole pipeline; margin
// reporting and consolidator reconciliation depend on both surviving.
type PricedOffer struct {
	Offer            Offer   `json:"offer"`
	NetPrice         float64 `json:"net_price"`
	CustomerPrice    float64 `json:"customer_price"`
	MarkupAmount     float64 `json:"markup_amount"`
	MarkupPercentage float64 `json:"markup_percentage"`
	Currency         string  `json:"currency"`
}

// AlreadyPriced reports whether markup has already been applied upstream.
// The net-price marker guards against double-markup when a priced offer from
// the search step is replayed into booking.
func (p *PricedOffer) AlreadyPriced() bool {
	return p.NetPrice > 0 && p.CustomerPrice > 0
}
