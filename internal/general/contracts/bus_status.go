package contracts

import "time"

// BusStatusMessage is published by the fleet service after every committed arrival.
// Routing key: "bus.status.{status}" on ExchangeFleetTopic.
type BusStatusMessage struct {
	BusID             int       `json:"bus_id"`
	Status            string    `json:"status"` // free|in_service
	CurrentPassengers int       `json:"current_count_passengers"`
	MaxCapacity       int       `json:"max_capacity"`
	Revenue           int64     `json:"revenue"`
	Timestamp         time.Time `json:"timestamp"`
	Envelope
}
