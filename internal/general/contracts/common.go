package contracts

import "time"

// Envelope adds cross-cutting headers all messages may carry.
type Envelope struct {
	CorrelationID string    `json:"correlation_id,omitempty"` // request id that caused the message
	Producer      string    `json:"producer,omitempty"`       // producer service name, e.g. "fleet-service"
	SentAt        time.Time `json:"sent_at,omitempty"`        // send time (UTC)
}
