package bus

import (
	"errors"
	"fmt"
	"strings"
)

// BusType is a vehicle class as stored in the `buses.bus_type` column.
type BusType string

const (
	TypeMicroBus BusType = "micro_bus"
	TypeBus      BusType = "bus"
	TypeLargeBus BusType = "large_bus"
)

var (
	ErrInvalidBusType  = errors.New("invalid bus type")
	ErrInvalidCapacity = errors.New("capacity must be greater than zero")
)

// ParseBusType normalizes (lowercases+trims) and validates a bus type string.
func ParseBusType(in string) (BusType, error) {
	busType := BusType(strings.ToLower(strings.TrimSpace(in)))
	if busType.Valid() {
		return busType, nil
	}
	return "", ErrInvalidBusType
}

// Valid reports whether busType is one of the allowed bus type constants.
func (busType BusType) Valid() bool {
	switch busType {
	case TypeMicroBus, TypeBus, TypeLargeBus:
		return true
	default:
		return false
	}
}

// String returns the string representation of the BusType.
func (busType BusType) String() string {
	return string(busType)
}

// CapacityTable maps every bus type to its maximum number of passengers on board.
type CapacityTable map[BusType]int

// DefaultCapacities returns the stock capacity table.
func DefaultCapacities() CapacityTable {
	return CapacityTable{
		TypeMicroBus: 20,
		TypeBus:      30,
		TypeLargeBus: 50,
	}
}

// Capacity looks up the capacity for busType.
func (table CapacityTable) Capacity(busType BusType) (int, error) {
	if !busType.Valid() {
		return 0, ErrInvalidBusType
	}
	capacity, ok := table[busType]
	if !ok {
		return 0, fmt.Errorf("no capacity configured for %s: %w", busType, ErrInvalidCapacity)
	}
	if capacity <= 0 {
		return 0, fmt.Errorf("%s: %w", busType, ErrInvalidCapacity)
	}
	return capacity, nil
}
