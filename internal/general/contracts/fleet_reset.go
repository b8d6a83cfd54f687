package contracts

import "time"

// FleetResetMessage announces that the fleet was wiped and reseeded.
// Routing key: "fleet.reset" on ExchangeFleetTopic.
type FleetResetMessage struct {
	Buses     int       `json:"buses"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
