package bus

import (
	"errors"
	"fmt"
	"time"
)

// Bus is the domain entity corresponding to the `buses` table.
type Bus struct {
	// Identity & audit
	ID        int
	CreatedAt time.Time
	UpdatedAt time.Time

	// Fixed at creation
	Type        BusType
	MaxCapacity int

	// Live state
	Status            Status
	CurrentPassengers int
	Revenue           int64
}

// Delta is the write-back computed for one arrival. It is applied as a whole or not at all.
type Delta struct {
	NewCount     int
	RevenueDelta int64
	NewStatus    Status
}

var (
	ErrBusNotFound      = errors.New("bus not found")
	ErrInvalidBusID     = errors.New("bus id must be positive")
	ErrInvalidQuantity  = errors.New("invalid passenger count")
	ErrCapacityExceeded = errors.New("bus capacity exceeded")
	ErrNegativeCount    = errors.New("entered and exited must not be negative")
)

// NewBus creates a free, empty bus of the given type.
func NewBus(id int, busType BusType, capacities CapacityTable) (*Bus, error) {
	if id <= 0 {
		return nil, ErrInvalidBusID
	}
	capacity, err := capacities.Capacity(busType)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Bus{
		ID:          id,
		CreatedAt:   now,
		UpdatedAt:   now,
		Type:        busType,
		MaxCapacity: capacity,
		Status:      StatusFree,
	}, nil
}

// PlanArrival validates an arrival against the current state and returns the delta to write.
// The bus itself is not modified.
func (bus *Bus) PlanArrival(entered, exited int, fareRate int64) (Delta, error) {
	if entered < 0 || exited < 0 {
		return Delta{}, ErrNegativeCount
	}

	newCount := bus.CurrentPassengers + entered - exited
	if newCount < 0 {
		return Delta{}, fmt.Errorf("%w: %d on board, %d exited", ErrInvalidQuantity, bus.CurrentPassengers, exited)
	}
	if newCount > bus.MaxCapacity {
		return Delta{}, fmt.Errorf("%w (%d passengers)", ErrCapacityExceeded, bus.MaxCapacity)
	}
	if !bus.Status.CanTransitionTo(StatusInService) {
		return Delta{}, ErrInvalidStatusTransition
	}

	return Delta{
		NewCount:     newCount,
		RevenueDelta: Revenue(entered, fareRate),
		NewStatus:    StatusInService,
	}, nil
}

// Apply writes delta into the in-memory entity.
func (bus *Bus) Apply(delta Delta) {
	bus.CurrentPassengers = delta.NewCount
	bus.Revenue += delta.RevenueDelta
	bus.Status = delta.NewStatus
	bus.UpdatedAt = time.Now().UTC()
}

// Validate performs basic invariant checks mirroring DB constraints.
func (bus *Bus) Validate() error {
	if bus.ID <= 0 {
		return ErrInvalidBusID
	}
	if !bus.Type.Valid() {
		return ErrInvalidBusType
	}
	if !bus.Status.Valid() {
		return ErrInvalidStatus
	}
	if bus.MaxCapacity <= 0 {
		return ErrInvalidCapacity
	}
	if bus.CurrentPassengers < 0 || bus.CurrentPassengers > bus.MaxCapacity {
		return ErrInvalidQuantity
	}
	if bus.Revenue < 0 {
		return errors.New("revenue must not be negative")
	}
	return nil
}
