package contracts

import "time"

// ArrivalRecordedMessage mirrors one ledger row.
// Routing key: "bus.arrival.{bus_id}" on ExchangeFleetTopic.
type ArrivalRecordedMessage struct {
	EventID      string    `json:"event_id"` // UUID
	BusID        int       `json:"bus_id"`
	Entered      int       `json:"entered"`
	Exited       int       `json:"exited"`
	RevenueDelta int64     `json:"revenue_delta"`
	OccurredAt   time.Time `json:"occurred_at"`
	Envelope
}
