package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bus-fleet/internal/domain/arrival"
	"bus-fleet/internal/domain/bus"
	"bus-fleet/internal/ports"
)

// RecordArrival validates one arrival against the bus it names and, if accepted,
// updates the bus and appends the event in a single transaction.
// A rejected arrival changes nothing.
func (service *fleetService) RecordArrival(ctx context.Context, in ports.RecordArrivalInput) (ports.BusStatusResult, error) {
	if in.Entered < 0 || in.Exited < 0 {
		return ports.BusStatusResult{}, bus.ErrNegativeCount
	}
	if in.BusID <= 0 {
		return ports.BusStatusResult{}, bus.ErrBusNotFound
	}

	ctx = service.logger.WithBusID(ctx, in.BusID)

	ts := service.now().UTC()
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}

	updated, event, delta, err := service.applyArrival(ctx, in, ts)
	if err != nil {
		service.logRejection(ctx, in, err)
		return ports.BusStatusResult{}, err
	}

	service.publishArrival(ctx, event, delta.RevenueDelta)
	service.publishStatus(ctx, updated)

	service.logger.Info(ctx, "arrival_recorded", fmt.Sprintf("Arrival recorded for bus %d", updated.ID), map[string]any{
		"event_id":      event.ID,
		"entered":       in.Entered,
		"exited":        in.Exited,
		"passengers":    updated.CurrentPassengers,
		"revenue_delta": delta.RevenueDelta,
		"revenue":       updated.Revenue,
	})

	return toStatusResult(updated), nil
}

// applyArrival runs the locked read-modify-write and ledger append.
func (service *fleetService) applyArrival(ctx context.Context, in ports.RecordArrivalInput, ts time.Time) (*bus.Bus, *arrival.Event, bus.Delta, error) {
	service.gate.RLock()
	defer service.gate.RUnlock()

	var (
		updated *bus.Bus
		event   *arrival.Event
		delta   bus.Delta
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// lock the bus row; concurrent arrivals for this bus wait here
		b, err := service.busRepo.GetForUpdate(txCtx, in.BusID)
		if err != nil {
			return err
		}

		delta, err = b.PlanArrival(in.Entered, in.Exited, service.fareRate)
		if err != nil {
			return err
		}

		if err := service.busRepo.ApplyDelta(txCtx, b.ID, delta.NewCount, delta.RevenueDelta, delta.NewStatus); err != nil {
			return err
		}
		b.Apply(delta)

		event, err = arrival.NewEvent(b.ID, in.Entered, in.Exited, ts)
		if err != nil {
			return err
		}
		if err := service.arrivalRepo.Append(txCtx, event); err != nil {
			return err
		}

		updated = b
		return nil
	})
	if err != nil {
		return nil, nil, bus.Delta{}, err
	}
	return updated, event, delta, nil
}

func (service *fleetService) logRejection(ctx context.Context, in ports.RecordArrivalInput, err error) {
	details := map[string]any{
		"entered": in.Entered,
		"exited":  in.Exited,
	}

	switch {
	case errors.Is(err, bus.ErrCapacityExceeded):
		service.logger.Warn(ctx, "capacity_exceeded", "Arrival rejected: capacity exceeded", err, details)
	case errors.Is(err, bus.ErrInvalidQuantity):
		service.logger.Warn(ctx, "invalid_quantity", "Arrival rejected: more passengers exited than on board", err, details)
	case errors.Is(err, bus.ErrBusNotFound):
		service.logger.Warn(ctx, "bus_not_found", "Arrival rejected: unknown bus", err, details)
	case errors.Is(err, bus.ErrInvalidStatusTransition):
		service.logger.Warn(ctx, "invalid_status_transition", "Arrival rejected: status transition not allowed", err, details)
	default:
		service.logger.Error(ctx, "arrival_record_failed", "Failed to record arrival", err, details)
	}
}
