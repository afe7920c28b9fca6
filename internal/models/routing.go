package models

// BookingChannel is the downstream channel chosen to fulfill an offer
type BookingChannel string

const (
	// ChannelInstant books through the instant-ticketing provider API
	ChannelInstant BookingChannel = "instant"
	// ChannelManual creates a local reservation ticketed out-of-band by a consolidator
	ChannelManual BookingChannel = "manual_consolidator"
)

// RoutingDecision records which channel fulfills an offer and why.
// Pure value; the reason string is kept on the booking row for margin analytics.
type RoutingDecision struct {
	Channel BookingChannel `json:"channel"`
	Reason  string         `json:"reason"`
}
