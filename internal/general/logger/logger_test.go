package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var out []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("line %q is not JSON: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("fleet-service", &buf)

	ctx := l.WithRequestID(context.Background(), "req-1")
	ctx = l.WithBusID(ctx, 7)
	l.Info(ctx, "arrival_recorded", "  recorded  ", map[string]any{"entered": 3})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d lines, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != "INFO" || e.Service != "fleet-service" || e.Action != "arrival_recorded" {
		t.Errorf("unexpected header fields: %+v", e)
	}
	if e.Message != "recorded" {
		t.Errorf("message = %q, want trimmed", e.Message)
	}
	if e.RequestID != "req-1" || e.BusID != "7" {
		t.Errorf("context fields = %q/%q", e.RequestID, e.BusID)
	}
	if e.Error != nil {
		t.Errorf("info line carries error: %+v", e.Error)
	}
}

func TestLogger_ErrorAndWarn(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("fleet-service", &buf)

	l.Error(context.Background(), "", "boom", errors.New("db down"), nil)
	l.Warn(context.Background(), "capacity_exceeded", "rejected", errors.New("full"), nil)

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d lines, want 2", len(entries))
	}
	if entries[0].Action != "unspecified" || entries[0].Error == nil || entries[0].Error.Stack == "" {
		t.Errorf("error entry = %+v", entries[0])
	}
	if entries[1].Level != "WARN" || entries[1].Error == nil || entries[1].Error.Stack != "" {
		t.Errorf("warn entry = %+v", entries[1])
	}
}

func TestLogger_UnencodableDetailsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("fleet-service", &buf)

	l.Info(context.Background(), "odd", "channel details", map[string]any{"ch": make(chan int)})

	entries := decodeLines(t, &buf)
	if entries[0].Details != nil {
		t.Errorf("details = %v, want dropped", entries[0].Details)
	}
}
