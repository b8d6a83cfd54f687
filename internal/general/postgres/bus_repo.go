package postgres

import (
	"context"
	"errors"
	"fmt"

	"bus-fleet/internal/domain/bus"
	"bus-fleet/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BusRepo persists the fleet registry using pgx and plain SQL.
type BusRepo struct {
	pool *pgxpool.Pool
}

// NewBusRepo constructs a new BusRepo.
func NewBusRepo(pool *pgxpool.Pool) ports.BusRepository {
	return &BusRepo{pool: pool}
}

const busColumns = `
	bus_id, bus_type, status,
	current_count_passengers, max_capacity, revenue,
	created_at, updated_at`

// InsertMany bulk-loads seeded buses with COPY.
func (repo *BusRepo) InsertMany(ctx context.Context, buses []*bus.Bus) error {
	if len(buses) == 0 {
		return nil
	}

	n, err := conn(ctx, repo.pool).CopyFrom(ctx,
		pgx.Identifier{"buses"},
		[]string{"bus_id", "bus_type", "status", "current_count_passengers", "max_capacity", "revenue", "created_at", "updated_at"},
		pgx.CopyFromSlice(len(buses), func(i int) ([]any, error) {
			b := buses[i]
			if err := b.Validate(); err != nil {
				return nil, fmt.Errorf("bus %d: %w", b.ID, err)
			}
			return []any{b.ID, b.Type.String(), b.Status.String(), b.CurrentPassengers, b.MaxCapacity, b.Revenue, b.CreatedAt, b.UpdatedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy buses: %w", err)
	}
	if int(n) != len(buses) {
		return fmt.Errorf("copy buses: inserted %d of %d rows", n, len(buses))
	}
	return nil
}

// Count returns the number of registered buses.
func (repo *BusRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := conn(ctx, repo.pool).QueryRow(ctx, `SELECT COUNT(*) FROM buses`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetByID returns one bus by id.
func (repo *BusRepo) GetByID(ctx context.Context, busID int) (*bus.Bus, error) {
	row := conn(ctx, repo.pool).QueryRow(ctx, `SELECT `+busColumns+` FROM buses WHERE bus_id = $1`, busID)
	return scanBus(row)
}

// GetForUpdate returns one bus and locks its row for the rest of the transaction.
// Concurrent arrivals for the same bus queue up here; other buses are unaffected.
func (repo *BusRepo) GetForUpdate(ctx context.Context, busID int) (*bus.Bus, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT `+busColumns+` FROM buses WHERE bus_id = $1 FOR UPDATE`, busID)
	return scanBus(row)
}

// ApplyDelta overwrites occupancy and status and adds revenueDelta to revenue.
func (repo *BusRepo) ApplyDelta(ctx context.Context, busID, newCount int, revenueDelta int64, status bus.Status) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if !status.Valid() {
		return bus.ErrInvalidStatus
	}

	tag, err := tx.Exec(ctx, `
		UPDATE buses
		SET current_count_passengers = $1,
		    revenue = revenue + $2,
		    status = $3,
		    updated_at = now()
		WHERE bus_id = $4
	`, newCount, revenueDelta, status.String(), busID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return bus.ErrBusNotFound
	}
	return nil
}

// ListAll returns every bus ordered by id.
func (repo *BusRepo) ListAll(ctx context.Context) ([]*bus.Bus, error) {
	rows, err := conn(ctx, repo.pool).Query(ctx, `SELECT `+busColumns+` FROM buses ORDER BY bus_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buses []*bus.Bus
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		buses = append(buses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buses, nil
}

// Clear removes every bus. CASCADE takes the ledger with it.
func (repo *BusRepo) Clear(ctx context.Context) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `TRUNCATE TABLE buses CASCADE`)
	return err
}

// scanBus maps one row onto the domain entity.
func scanBus(row pgx.Row) (*bus.Bus, error) {
	var (
		out        bus.Bus
		busType    string
		statusText string
	)

	err := row.Scan(
		&out.ID, &busType, &statusText,
		&out.CurrentPassengers, &out.MaxCapacity, &out.Revenue,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, bus.ErrBusNotFound
	}
	if err != nil {
		return nil, err
	}

	// map DB strings to domain enums
	if out.Type, err = bus.ParseBusType(busType); err != nil {
		return nil, fmt.Errorf("bus %d: %w", out.ID, err)
	}
	if out.Status, err = bus.ParseStatus(statusText); err != nil {
		return nil, fmt.Errorf("bus %d: %w", out.ID, err)
	}

	return &out, nil
}
