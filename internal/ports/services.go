package ports

import (
	"context"
	"time"
)

// ----- DTOs for Fleet Service -----

// RecordArrivalInput is the validated input for POST /api/bus/passengers.
type RecordArrivalInput struct {
	BusID     int
	Entered   int
	Exited    int
	Timestamp *time.Time // optional; the service clock is used when nil
}

// BusStatusResult is the snapshot of a bus returned to callers.
type BusStatusResult struct {
	BusID                  int    `json:"bus_id"`
	Status                 string `json:"status"`
	CurrentCountPassengers int    `json:"current_count_passengers"`
	MaxCapacity            int    `json:"max_capacity"`
	Revenue                int64  `json:"revenue"`
}

// BusStatisticsResult is returned by FleetService.GetStatistics().
type BusStatisticsResult struct {
	BusID           int       `json:"bus_id"`
	TotalPassengers int       `json:"total_passengers"`
	TotalRevenue    int64     `json:"total_revenue"`
	MaxCapacity     int       `json:"max_capacity"`
	LastUpdate      time.Time `json:"last_update"`
	TimeRange       string    `json:"time_range"`
	Since           time.Time `json:"since"`
}

// ArrivalResult is one ledger row returned to callers.
type ArrivalResult struct {
	ID        string    `json:"id"`
	BusID     int       `json:"bus_id"`
	Entered   int       `json:"entered"`
	Exited    int       `json:"exited"`
	Timestamp time.Time `json:"timestamp"`
}

// ArrivalListResult is returned by FleetService.ListArrivals().
type ArrivalListResult struct {
	BusID     int             `json:"bus_id"`
	TimeRange string          `json:"time_range"`
	Since     time.Time       `json:"since"`
	Arrivals  []ArrivalResult `json:"arrivals"`
}

// ResetResult matches the API response for POST /api/reset-database.
type ResetResult struct {
	Message string `json:"message"`
	Buses   int    `json:"buses"`
}

// ----- Fleet Service Interface -----

// FleetService exposes the boundary for the fleet update/aggregate engine.
type FleetService interface {
	Initialize(ctx context.Context) error
	RecordArrival(ctx context.Context, in RecordArrivalInput) (BusStatusResult, error)
	GetStatistics(ctx context.Context, busID int, timeRange string) (BusStatisticsResult, error)
	ListArrivals(ctx context.Context, busID int, timeRange string) (ArrivalListResult, error)
	ListStatus(ctx context.Context) ([]BusStatusResult, error)
	ResetAll(ctx context.Context) (ResetResult, error)
}
