package service

import (
	"fmt"
	"sync"
	"time"

	"bus-fleet/internal/domain/bus"
	"bus-fleet/internal/general/config"
	"bus-fleet/internal/general/logger"
	"bus-fleet/internal/ports"
)

const producerName = "fleet-service"

// fleetService owns the fleet state machine and the ridership ledger.
type fleetService struct {
	logger      *logger.Logger
	uow         ports.UnitOfWork
	busRepo     ports.BusRepository
	arrivalRepo ports.ArrivalRepository
	pub         ports.MessagePublisher // optional

	plan     config.FleetPlan
	fareRate int64

	// gate: every operation holds the read side, ResetAll holds the write side
	gate sync.RWMutex
	now  func() time.Time
}

// NewFleetService wires the fleet engine. pub may be nil, in which case nothing is published.
func NewFleetService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	busRepo ports.BusRepository,
	arrivalRepo ports.ArrivalRepository,
	pub ports.MessagePublisher,
	plan config.FleetPlan,
) (ports.FleetService, error) {
	if err := plan.Composition.Check(plan.Size, plan.Capacities); err != nil {
		return nil, fmt.Errorf("fleet plan: %w", err)
	}
	rate, err := plan.Fares.Rate(bus.FareNormal)
	if err != nil {
		return nil, fmt.Errorf("fleet plan: %w", err)
	}

	return &fleetService{
		logger:      logger,
		uow:         uow,
		busRepo:     busRepo,
		arrivalRepo: arrivalRepo,
		pub:         pub,
		plan:        plan,
		fareRate:    rate,
		now:         time.Now,
	}, nil
}

func toStatusResult(b *bus.Bus) ports.BusStatusResult {
	return ports.BusStatusResult{
		BusID:                  b.ID,
		Status:                 b.Status.String(),
		CurrentCountPassengers: b.CurrentPassengers,
		MaxCapacity:            b.MaxCapacity,
		Revenue:                b.Revenue,
	}
}
