package bus

import (
	"errors"
	"strings"
)

// Status is a bus status as stored in the `buses.status` column.
type Status string

const (
	StatusFree      Status = "free"
	StatusInService Status = "in_service"
)

var (
	ErrInvalidStatus           = errors.New("invalid bus status")
	ErrInvalidStatusTransition = errors.New("invalid bus status transition")
)

// ParseStatus normalizes (lowercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed bus status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusFree, StatusInService:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo reports whether a bus in status may move to next.
// The only transition is one-way: a free bus goes in service on its first arrival
// and stays there. Nothing moves it back to free except a fleet reset.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusFree:
		return next == StatusFree || next == StatusInService
	case StatusInService:
		return next == StatusInService
	default:
		return false
	}
}
