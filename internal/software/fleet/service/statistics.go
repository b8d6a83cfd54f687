package service

import (
	"context"
	"time"

	"bus-fleet/internal/domain/arrival"
	"bus-fleet/internal/domain/bus"
	"bus-fleet/internal/ports"
)

// GetStatistics aggregates boarded passengers for one bus over a trailing window.
// An unknown bus wins over a bad window token. Bus lookup and ledger sum read the same snapshot.
func (service *fleetService) GetStatistics(ctx context.Context, busID int, timeRange string) (ports.BusStatisticsResult, error) {
	if busID <= 0 {
		return ports.BusStatisticsResult{}, bus.ErrBusNotFound
	}

	ctx = service.logger.WithBusID(ctx, busID)

	service.gate.RLock()
	defer service.gate.RUnlock()

	now := service.now().UTC()

	var (
		b     *bus.Bus
		tr    arrival.TimeRange
		since time.Time
		total int
	)
	err := service.uow.WithinReadTx(ctx, func(txCtx context.Context) error {
		var err error
		if b, err = service.busRepo.GetByID(txCtx, busID); err != nil {
			return err
		}
		if tr, err = arrival.ParseTimeRange(timeRange); err != nil {
			return err
		}
		since = tr.Since(now)
		total, err = service.arrivalRepo.SumEnteredSince(txCtx, busID, since)
		return err
	})
	if err != nil {
		service.logReadFailure(ctx, "statistics_failed", "Failed to compute bus statistics", err)
		return ports.BusStatisticsResult{}, err
	}

	service.logger.Debug(ctx, "statistics_computed", "Bus statistics computed", map[string]any{
		"time_range":       tr.String(),
		"total_passengers": total,
	})

	return ports.BusStatisticsResult{
		BusID:           b.ID,
		TotalPassengers: total,
		TotalRevenue:    bus.Revenue(total, service.fareRate),
		MaxCapacity:     b.MaxCapacity,
		LastUpdate:      now,
		TimeRange:       tr.String(),
		Since:           since,
	}, nil
}

// ListArrivals returns the ledger rows of one bus inside a trailing window, oldest first.
func (service *fleetService) ListArrivals(ctx context.Context, busID int, timeRange string) (ports.ArrivalListResult, error) {
	if busID <= 0 {
		return ports.ArrivalListResult{}, bus.ErrBusNotFound
	}

	ctx = service.logger.WithBusID(ctx, busID)

	service.gate.RLock()
	defer service.gate.RUnlock()

	now := service.now().UTC()

	var (
		tr     arrival.TimeRange
		since  time.Time
		events []arrival.Event
	)
	err := service.uow.WithinReadTx(ctx, func(txCtx context.Context) error {
		if _, err := service.busRepo.GetByID(txCtx, busID); err != nil {
			return err
		}
		var err error
		if tr, err = arrival.ParseTimeRange(timeRange); err != nil {
			return err
		}
		since = tr.Since(now)
		events, err = service.arrivalRepo.ListSince(txCtx, busID, since)
		return err
	})
	if err != nil {
		service.logReadFailure(ctx, "arrivals_list_failed", "Failed to list bus arrivals", err)
		return ports.ArrivalListResult{}, err
	}

	out := ports.ArrivalListResult{
		BusID:     busID,
		TimeRange: tr.String(),
		Since:     since,
		Arrivals:  make([]ports.ArrivalResult, 0, len(events)),
	}
	for _, e := range events {
		out.Arrivals = append(out.Arrivals, ports.ArrivalResult{
			ID:        e.ID,
			BusID:     e.BusID,
			Entered:   e.Entered,
			Exited:    e.Exited,
			Timestamp: e.Timestamp.UTC(),
		})
	}
	return out, nil
}
