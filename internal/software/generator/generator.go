// Package generator simulates stop observations by posting random arrival
// events to the fleet API.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"bus-fleet/internal/general/logger"
	"bus-fleet/internal/ports"

	"github.com/google/uuid"
)

// Config bounds the random events.
type Config struct {
	APIURL        string
	Buses         int // ids are drawn from 1..Buses
	MinPassengers int
	MaxPassengers int
	MinInterval   time.Duration
	MaxInterval   time.Duration
}

// Event is the body of POST /api/bus/passengers.
type Event struct {
	BusID   int `json:"bus_id"`
	Entered int `json:"entered"`
	Exited  int `json:"exited"`
}

// StatusError is returned by Send when the API answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fleet api returned %d: %s", e.Code, e.Body)
}

// Generator posts random events until its context is cancelled.
type Generator struct {
	cfg    Config
	client *http.Client
	logger *logger.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// New validates cfg. A nil client gets a 10 s timeout client.
func New(cfg Config, logger *logger.Logger, client *http.Client) (*Generator, error) {
	switch {
	case cfg.APIURL == "":
		return nil, errors.New("generator: api url is required")
	case cfg.Buses <= 0:
		return nil, errors.New("generator: bus count must be positive")
	case cfg.MinPassengers < 0 || cfg.MaxPassengers < cfg.MinPassengers:
		return nil, fmt.Errorf("generator: invalid passenger range [%d, %d]", cfg.MinPassengers, cfg.MaxPassengers)
	case cfg.MinInterval < 0 || cfg.MaxInterval < cfg.MinInterval:
		return nil, fmt.Errorf("generator: invalid interval range [%s, %s]", cfg.MinInterval, cfg.MaxInterval)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	seed := uint64(time.Now().UnixNano())
	return &Generator{
		cfg:    cfg,
		client: client,
		logger: logger,
		rnd:    rand.New(rand.NewPCG(seed, seed>>1|1)),
	}, nil
}

// NextEvent draws bus_id in [1, Buses], entered in [MinPassengers, MaxPassengers]
// and exited in [0, entered].
func (g *Generator) NextEvent() Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	entered := g.cfg.MinPassengers + g.rnd.IntN(g.cfg.MaxPassengers-g.cfg.MinPassengers+1)
	return Event{
		BusID:   1 + g.rnd.IntN(g.cfg.Buses),
		Entered: entered,
		Exited:  g.rnd.IntN(entered + 1),
	}
}

// NextInterval draws a pause in [MinInterval, MaxInterval].
func (g *Generator) NextInterval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	span := g.cfg.MaxInterval - g.cfg.MinInterval
	if span <= 0 {
		return g.cfg.MinInterval
	}
	return g.cfg.MinInterval + time.Duration(g.rnd.Int64N(int64(span)+1))
}

// Send posts one event and decodes the bus snapshot from a 200 response.
func (g *Generator) Send(ctx context.Context, e Event) (ports.BusStatusResult, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return ports.BusStatusResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return ports.BusStatusResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return ports.BusStatusResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return ports.BusStatusResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return ports.BusStatusResult{}, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	var out ports.BusStatusResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return ports.BusStatusResult{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Run sends an event, sleeps a random interval and repeats until ctx is done.
// Failed sends are logged and do not stop the loop.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info(ctx, "generator_started", "Passenger event generator started", map[string]any{
		"api_url": g.cfg.APIURL,
		"buses":   g.cfg.Buses,
	})

	for {
		g.step(ctx)

		wait := g.NextInterval()
		g.logger.Debug(ctx, "generator_waiting", "Waiting before next event", map[string]any{
			"wait_ms": wait.Milliseconds(),
		})

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			g.logger.Info(context.WithoutCancel(ctx), "generator_stopped", "Passenger event generator stopped", nil)
			return nil
		case <-timer.C:
		}
	}
}

func (g *Generator) step(ctx context.Context) {
	e := g.NextEvent()
	reqCtx := g.logger.WithBusID(g.logger.WithRequestID(ctx, uuid.NewString()), e.BusID)

	res, err := g.Send(reqCtx, e)
	details := map[string]any{"entered": e.Entered, "exited": e.Exited}

	var se *StatusError
	switch {
	case err == nil:
		details["passengers"] = res.CurrentCountPassengers
		details["revenue"] = res.Revenue
		g.logger.Info(reqCtx, "event_sent", "Arrival event accepted", details)
	case errors.As(err, &se) && se.Code < 500:
		details["status_code"] = se.Code
		g.logger.Warn(reqCtx, "event_rejected", "Arrival event rejected by fleet api", err, details)
	case ctx.Err() != nil:
		// shutting down
	default:
		g.logger.Error(reqCtx, "event_send_failed", "Failed to send arrival event", err, details)
	}
}
