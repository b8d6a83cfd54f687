package ports

import (
	"context"
	"time"

	"bus-fleet/internal/domain/arrival"
	"bus-fleet/internal/domain/bus"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	// WithinTx runs fn in a read-write transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// WithinReadTx runs fn in a read-only snapshot so multi-step reads see one consistent state.
	WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BusRepository is the fleet registry: one record per bus.
type BusRepository interface {
	InsertMany(ctx context.Context, buses []*bus.Bus) error
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, busID int) (*bus.Bus, error)
	// GetForUpdate reads the bus and holds its row lock until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, busID int) (*bus.Bus, error)
	// ApplyDelta writes the three live fields unconditionally. The caller holds the row lock.
	ApplyDelta(ctx context.Context, busID, newCount int, revenueDelta int64, status bus.Status) error
	ListAll(ctx context.Context) ([]*bus.Bus, error)
	Clear(ctx context.Context) error
}

// ArrivalRepository is the append-only ridership ledger.
type ArrivalRepository interface {
	Append(ctx context.Context, e *arrival.Event) error
	ListSince(ctx context.Context, busID int, since time.Time) ([]arrival.Event, error)
	SumEnteredSince(ctx context.Context, busID int, since time.Time) (int, error)
	Clear(ctx context.Context) error
}

// MessagePublisher delivers an encoded message to an exchange.
type MessagePublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}
