package postgres

import (
	"context"
	"errors"
	"time"

	"bus-fleet/internal/domain/arrival"
	"bus-fleet/internal/domain/bus"
	"bus-fleet/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// foreign_key_violation
const pgForeignKeyViolation = "23503"

// ArrivalRepo persists the ridership ledger using pgx and plain SQL.
type ArrivalRepo struct {
	pool *pgxpool.Pool
}

// NewArrivalRepo constructs a new ArrivalRepo.
func NewArrivalRepo(pool *pgxpool.Pool) ports.ArrivalRepository {
	return &ArrivalRepo{pool: pool}
}

// Append inserts a new passenger_arrivals row.
func (repo *ArrivalRepo) Append(ctx context.Context, event *arrival.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	err := conn(ctx, repo.pool).QueryRow(ctx, `
		INSERT INTO passenger_arrivals (id, bus_id, entered, exited, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`,
		event.ID,
		event.BusID,
		event.Entered,
		event.Exited,
		event.Timestamp,
	).Scan(&event.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return bus.ErrBusNotFound
	}
	return err
}

// ListSince returns the events of one bus with occurred_at >= since, oldest first.
func (repo *ArrivalRepo) ListSince(ctx context.Context, busID int, since time.Time) ([]arrival.Event, error) {
	rows, err := conn(ctx, repo.pool).Query(ctx, `
		SELECT id::text, bus_id, entered, exited, occurred_at, created_at
		FROM passenger_arrivals
		WHERE bus_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at, created_at
	`, busID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []arrival.Event
	for rows.Next() {
		var e arrival.Event
		if err := rows.Scan(&e.ID, &e.BusID, &e.Entered, &e.Exited, &e.Timestamp, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// SumEnteredSince adds up boarded passengers for one bus with occurred_at >= since.
func (repo *ArrivalRepo) SumEnteredSince(ctx context.Context, busID int, since time.Time) (int, error) {
	var total int
	err := conn(ctx, repo.pool).QueryRow(ctx, `
		SELECT COALESCE(SUM(entered), 0)::int
		FROM passenger_arrivals
		WHERE bus_id = $1 AND occurred_at >= $2
	`, busID, since.UTC()).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Clear removes every event.
func (repo *ArrivalRepo) Clear(ctx context.Context) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `TRUNCATE TABLE passenger_arrivals`)
	return err
}
