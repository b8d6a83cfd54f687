package arrival

import (
	"errors"
	"time"
)

// TimeRange is a statistics window token.
type TimeRange string

const (
	Range10Minutes TimeRange = "10m"
	RangeHour      TimeRange = "1h"
	RangeDay       TimeRange = "1d"
	RangeWeek      TimeRange = "1w"

	DefaultTimeRange = RangeDay
)

var ErrInvalidTimeRange = errors.New("time_range must be one of: 10m, 1h, 1d, 1w")

// ParseTimeRange validates a token exactly as given. An empty token selects DefaultTimeRange.
func ParseTimeRange(in string) (TimeRange, error) {
	if in == "" {
		return DefaultTimeRange, nil
	}
	timeRange := TimeRange(in)
	if timeRange.Valid() {
		return timeRange, nil
	}
	return "", ErrInvalidTimeRange
}

// Valid reports whether timeRange is one of the allowed tokens.
func (timeRange TimeRange) Valid() bool {
	switch timeRange {
	case Range10Minutes, RangeHour, RangeDay, RangeWeek:
		return true
	default:
		return false
	}
}

// Duration returns how far back the window reaches.
func (timeRange TimeRange) Duration() time.Duration {
	switch timeRange {
	case Range10Minutes:
		return 10 * time.Minute
	case RangeHour:
		return time.Hour
	case RangeDay:
		return 24 * time.Hour
	case RangeWeek:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Since resolves the window start relative to now.
func (timeRange TimeRange) Since(now time.Time) time.Time {
	return now.Add(-timeRange.Duration())
}

// String returns the string representation of the TimeRange.
func (timeRange TimeRange) String() string {
	return string(timeRange)
}
