package generatorcmd

import (
	"context"
	"time"

	"bus-fleet/internal/general/config"
	"bus-fleet/internal/general/logger"
	"bus-fleet/internal/software/generator"
)

// Options are the command-line knobs of the generator.
type Options struct {
	ConfigPath string
	APIURL     string // overrides generator.api_url when set
}

// Run starts the passenger event generator and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	logger := logger.New("generator")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(opts.ConfigPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, map[string]any{"path": opts.ConfigPath})
		return err
	}

	gc := cfg.Generator
	if opts.APIURL != "" {
		gc.APIURL = opts.APIURL
	}

	gen, err := generator.New(generator.Config{
		APIURL:        gc.APIURL,
		Buses:         cfg.Fleet.Size,
		MinPassengers: gc.MinPassengers,
		MaxPassengers: gc.MaxPassengers,
		MinInterval:   time.Duration(gc.MinIntervalSeconds) * time.Second,
		MaxInterval:   time.Duration(gc.MaxIntervalSeconds) * time.Second,
	}, logger, nil)
	if err != nil {
		logger.Error(ctx, "generator_init_failed", "Invalid generator configuration", err, nil)
		return err
	}

	return gen.Run(ctx)
}
