package arrival

import (
	"errors"
	"testing"
	"time"

	"bus-fleet/internal/domain/bus"
)

func TestNewEvent(t *testing.T) {
	ts := time.Date(2026, 3, 1, 8, 30, 0, 0, time.FixedZone("MSK", 3*3600))

	event, err := NewEvent(3, 4, 1, ts)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if event.ID == "" {
		t.Error("event id is empty")
	}
	if event.Timestamp.Location() != time.UTC || !event.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v in UTC", event.Timestamp, ts)
	}

	if _, err := NewEvent(3, -1, 0, ts); !errors.Is(err, bus.ErrNegativeCount) {
		t.Errorf("negative entered: err = %v", err)
	}
	if _, err := NewEvent(3, 1, 0, time.Time{}); !errors.Is(err, ErrTimestampRequired) {
		t.Errorf("zero timestamp: err = %v", err)
	}
}

func TestSumEntered_IgnoresExited(t *testing.T) {
	events := []Event{
		{Entered: 5, Exited: 2},
		{Entered: 0, Exited: 3},
		{Entered: 7, Exited: 7},
	}
	if got := SumEntered(events); got != 12 {
		t.Errorf("SumEntered = %d, want 12", got)
	}
}

func TestParseTimeRange(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want TimeRange
		back time.Duration
	}{
		{"10m", Range10Minutes, 10 * time.Minute},
		{"1h", RangeHour, time.Hour},
		{"1d", RangeDay, 24 * time.Hour},
		{"1w", RangeWeek, 7 * 24 * time.Hour},
		{"", RangeDay, 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseTimeRange(tc.in)
		if err != nil {
			t.Errorf("ParseTimeRange(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeRange(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if since := got.Since(now); !since.Equal(now.Add(-tc.back)) {
			t.Errorf("%q.Since = %v", got, since)
		}
	}

	for _, bad := range []string{"bad", "2d", "1W", "60m", " 1h", "1h ", "\t10m", " "} {
		if _, err := ParseTimeRange(bad); !errors.Is(err, ErrInvalidTimeRange) {
			t.Errorf("ParseTimeRange(%q): err = %v, want ErrInvalidTimeRange", bad, err)
		}
	}
}
