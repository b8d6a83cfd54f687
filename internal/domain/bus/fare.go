package bus

import (
	"errors"
	"fmt"
	"strings"
)

// FareClass names a tariff. Only the normal fare exists.
type FareClass string

const FareNormal FareClass = "normal"

var ErrUnknownFareClass = errors.New("unknown fare class")

// ParseFareClass normalizes (lowercases+trims) and validates a fare class string.
func ParseFareClass(in string) (FareClass, error) {
	class := FareClass(strings.ToLower(strings.TrimSpace(in)))
	if class == FareNormal {
		return class, nil
	}
	return "", ErrUnknownFareClass
}

// FareTable holds the revenue attributed per boarding passenger, in whole currency units.
type FareTable map[FareClass]int64

// DefaultFares returns the stock fare table.
func DefaultFares() FareTable {
	return FareTable{FareNormal: 45}
}

// Rate returns the per-passenger fare for class.
func (table FareTable) Rate(class FareClass) (int64, error) {
	rate, ok := table[class]
	if !ok {
		return 0, fmt.Errorf("%s: %w", class, ErrUnknownFareClass)
	}
	if rate < 0 {
		return 0, fmt.Errorf("fare %s must not be negative", class)
	}
	return rate, nil
}

// Revenue is the amount earned for boarded passengers at rate.
func Revenue(boarded int, rate int64) int64 {
	if boarded <= 0 {
		return 0
	}
	return int64(boarded) * rate
}
