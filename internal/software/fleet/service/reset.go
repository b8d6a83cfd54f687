package service

import (
	"context"

	"bus-fleet/internal/domain/bus"
	"bus-fleet/internal/ports"
)

const resetMessage = "Database reset successfully"

// ResetAll wipes the ledger and registry and reseeds the fleet in one transaction.
// It waits for in-flight operations and blocks new ones until it finishes.
func (service *fleetService) ResetAll(ctx context.Context) (ports.ResetResult, error) {
	service.gate.Lock()
	defer service.gate.Unlock()

	var seeded int
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.arrivalRepo.Clear(txCtx); err != nil {
			return err
		}
		if err := service.busRepo.Clear(txCtx); err != nil {
			return err
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
		service.logger.Error(ctx, "fleet_reset_failed", "Failed to reset fleet", err, nil)
		return ports.ResetResult{}, err
	}

	service.publishReset(ctx, seeded)

	service.logger.Info(ctx, "fleet_reset", "Fleet and ledger reset", map[string]any{
		"buses": seeded,
	})

	return ports.ResetResult{Message: resetMessage, Buses: seeded}, nil
}
