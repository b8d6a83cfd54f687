package service

import (
	"context"

	"bus-fleet/internal/ports"
)

// ListStatus returns a snapshot of every bus ordered by id.
func (service *fleetService) ListStatus(ctx context.Context) ([]ports.BusStatusResult, error) {
	service.gate.RLock()
	defer service.gate.RUnlock()

	buses, err := service.busRepo.ListAll(ctx)
	if err != nil {
		service.logger.Error(ctx, "status_list_failed", "Failed to list bus status", err, nil)
		return nil, err
	}

	out := make([]ports.BusStatusResult, 0, len(buses))
	for _, b := range buses {
		out = append(out, toStatusResult(b))
	}
	return out, nil
}
