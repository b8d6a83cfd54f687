package bus

import (
	"errors"
	"fmt"
)

// Allocation is one slice of the fleet: Count buses of Type.
type Allocation struct {
	Type  BusType
	Count int
}

// Composition lists allocations in seeding order. Bus ids are assigned 1..N following it.
type Composition []Allocation

var ErrFleetSizeMismatch = errors.New("fleet size does not match composition")

// DefaultComposition reproduces the stock ten-bus fleet: ids 1-5 micro, 6-8 standard, 9-10 large.
func DefaultComposition() Composition {
	return Composition{
		{Type: TypeMicroBus, Count: 5},
		{Type: TypeBus, Count: 3},
		{Type: TypeLargeBus, Count: 2},
	}
}

// Size is the total number of buses described.
func (composition Composition) Size() int {
	total := 0
	for _, a := range composition {
		total += a.Count
	}
	return total
}

// Check validates every allocation against capacities and, when size > 0, the declared total.
func (composition Composition) Check(size int, capacities CapacityTable) error {
	if len(composition) == 0 {
		return errors.New("fleet composition is empty")
	}
	seen := make(map[BusType]bool, len(composition))
	for i, a := range composition {
		if !a.Type.Valid() {
			return fmt.Errorf("composition[%d]: %w: %q", i, ErrInvalidBusType, a.Type)
		}
		if seen[a.Type] {
			return fmt.Errorf("composition[%d]: duplicate bus type %s", i, a.Type)
		}
		seen[a.Type] = true
		if a.Count <= 0 {
			return fmt.Errorf("composition[%d]: count must be greater than zero", i)
		}
		if _, err := capacities.Capacity(a.Type); err != nil {
			return fmt.Errorf("composition[%d]: %w", i, err)
		}
	}
	if size > 0 && size != composition.Size() {
		return fmt.Errorf("%w: size %d, composition totals %d", ErrFleetSizeMismatch, size, composition.Size())
	}
	return nil
}

// Seed builds the initial fleet state.
func Seed(composition Composition, capacities CapacityTable) ([]*Bus, error) {
	if err := composition.Check(0, capacities); err != nil {
		return nil, err
	}

	buses := make([]*Bus, 0, composition.Size())
	id := 1
	for _, a := range composition {
		for range a.Count {
			b, err := NewBus(id, a.Type, capacities)
			if err != nil {
				return nil, err
			}
			buses = append(buses, b)
			id++
		}
	}
	return buses, nil
}
