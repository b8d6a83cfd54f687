package arrival

import (
	"errors"
	"time"

	"bus-fleet/internal/domain/bus"

	"github.com/google/uuid"
)

var ErrTimestampRequired = errors.New("arrival timestamp is required")

// Event is the domain entity corresponding to the `passenger_arrivals` table.
// Events are append-only; nothing updates or deletes a single row.
type Event struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time

	// Foreign keys
	BusID int

	// Core payload
	Entered   int
	Exited    int
	Timestamp time.Time
}

// NewEvent constructs a new arrival event occurring at ts.
func NewEvent(busID, entered, exited int, ts time.Time) (*Event, error) {
	event := &Event{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		BusID:     busID,
		Entered:   entered,
		Exited:    exited,
		Timestamp: ts.UTC(),
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

// Validate performs basic invariant checks mirroring DB constraints.
func (event *Event) Validate() error {
	if event.BusID <= 0 {
		return bus.ErrBusNotFound
	}
	if event.Entered < 0 || event.Exited < 0 {
		return bus.ErrNegativeCount
	}
	if event.Timestamp.IsZero() {
		return ErrTimestampRequired
	}
	return nil
}

// SumEntered adds up boarded passengers over events. Exited passengers never count toward ridership.
func SumEntered(events []Event) int {
	total := 0
	for _, e := range events {
		total += e.Entered
	}
	return total
}
