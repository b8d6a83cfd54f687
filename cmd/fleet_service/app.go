package fleetservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"bus-fleet/internal/general/config"
	"bus-fleet/internal/general/logger"
	"bus-fleet/internal/general/postgres"
	"bus-fleet/internal/general/rabbitmq"
	"bus-fleet/internal/general/websocket"
	"bus-fleet/internal/software/fleet/handler"
	"bus-fleet/internal/software/fleet/service"
)

// Options are the command-line knobs of the fleet service.
type Options struct {
	ConfigPath    string
	MaxConcurrent int
	Prefetch      int
}

// Run wires the fleet service and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// set up a new logger for fleet service with a static request ID for startup logs
	logger := logger.New("fleet-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load the config from file
	cfg, err := config.LoadFromFile(opts.ConfigPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, map[string]any{"path": opts.ConfigPath})
		return err
	}
	plan, err := cfg.Fleet.Plan()
	if err != nil {
		logger.Error(ctx, "fleet_plan_invalid", "Fleet configuration is inconsistent", err, nil)
		return err
	}

	// set up a Postgres connection pool and schema
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		logger.Error(ctx, "db_migration_failed", "Failed to apply migrations", err, nil)
		return err
	}

	// set up RabbitMQ (topology is declared on connect)
	mq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer mq.Close()

	// set up the necessary repos
	uow := postgres.NewUnitOfWork(pool)
	busRepo := postgres.NewBusRepo(pool)
	arrivalRepo := postgres.NewArrivalRepo(pool)

	// set up the service and seed the registry
	svc, err := service.NewFleetService(logger, uow, busRepo, arrivalRepo, rabbitmq.NewMQPublisher(mq), plan)
	if err != nil {
		logger.Error(ctx, "service_init_failed", "Failed to construct fleet service", err, nil)
		return err
	}
	if err := svc.Initialize(ctx); err != nil {
		return err
	}

	// live feed: RabbitMQ status messages -> WebSocket subscribers
	feed := websocket.NewFeed(logger)
	defer feed.Close()

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		service.NewFeedRelay(logger, mq, feed, opts.Prefetch).Run(relayCtx)
	}()

	// set up the HTTP handler and its routes
	api := http.NewServeMux()
	httpHandler := handler.NewFleetHTTPHandler(svc, logger, map[string]handler.HealthCheck{
		"postgres": pool.Ping,
		"rabbitmq": func(context.Context) error {
			if !mq.Ready() {
				return errors.New("not connected")
			}
			return nil
		},
	})
	httpHandler.RegisterRoutes(api)

	// WebSocket connections are long-lived, so they bypass the limiter
	root := http.NewServeMux()
	root.Handle("GET /ws/fleet", feed)
	root.Handle("/", withConcurrencyLimit(opts.MaxConcurrent, api))

	port := cfg.Services.FleetServicePort

	// log service start
	logger.Info(ctx, "service_started",
		fmt.Sprintf("Fleet service started on port %d", port),
		map[string]any{"port": port, "max_concurrent": opts.MaxConcurrent, "buses": plan.Size},
	)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),                          // listen on the specified port
		Handler:           handler.CORS(root),                                // CORS on every route
		ReadHeaderTimeout: 5 * time.Second,                                   // time to read headers
		ReadTimeout:       10 * time.Second,                                  // time to read full request body
		WriteTimeout:      20 * time.Second,                                  // full response write timeout (reset needs 15s)
		IdleTimeout:       60 * time.Second,                                  // keep-alive window
		BaseContext:       func(net.Listener) context.Context { return ctx }, // pass base ctx to all handlers
	}

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		stopRelay()
		<-relayDone
		logger.Info(context.WithoutCancel(ctx), "service_stopped", "Fleet service stopped", nil)
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": port})
			return err
		}
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
