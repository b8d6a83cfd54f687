package service

import (
	"context"

	"bus-fleet/internal/domain/bus"
)

// Initialize seeds the registry from the fleet plan when it is empty.
// A non-empty registry is left untouched so restarts keep live state.
func (service *fleetService) Initialize(ctx context.Context) error {
	service.gate.Lock()
	defer service.gate.Unlock()

	var existing, seeded int

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		n, err := service.busRepo.Count(txCtx)
		if err != nil {
			return err
		}
		if n > 0 {
			existing = n
			return nil
		}

		buses, err := bus.Seed(service.plan.Composition, service.plan.Capacities)
		if err != nil {
			return err
		}
		if err := service.busRepo.InsertMany(txCtx, buses); err != nil {
			return err
		}
		seeded = len(buses)
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "fleet_init_failed", "Failed to initialize fleet registry", err, nil)
		return err
	}

	if seeded > 0 {
		service.logger.Info(ctx, "fleet_seeded", "Fleet registry seeded", map[string]any{
			"buses":       seeded,
			"composition": service.plan.Composition,
		})
		return nil
	}

	if existing != service.plan.Size {
		service.logger.Warn(ctx, "fleet_size_drift", "Registry size differs from configured fleet size", nil, map[string]any{
			"registered": existing,
			"configured": service.plan.Size,
		})
		return nil
	}

	service.logger.Info(ctx, "fleet_loaded", "Fleet registry already initialized", map[string]any{
		"buses": existing,
	})
	return nil
}
