package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"bus-fleet/internal/domain/arrival"
	"bus-fleet/internal/domain/bus"
	"bus-fleet/internal/general/logger"
	"bus-fleet/internal/ports"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// HealthCheck probes one dependency; a nil error means healthy.
type HealthCheck func(ctx context.Context) error

// FleetHTTPHandler adapts HTTP requests to the FleetService.
type FleetHTTPHandler struct {
	svc      ports.FleetService
	logger   *logger.Logger
	validate *validator.Validate
	checks   map[string]HealthCheck
}

// NewFleetHTTPHandler wires an HTTP handler around the FleetService.
// checks are reported by GET /api/health and may be nil.
func NewFleetHTTPHandler(svc ports.FleetService, logger *logger.Logger, checks map[string]HealthCheck) *FleetHTTPHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names in validation errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &FleetHTTPHandler{svc: svc, logger: logger, validate: v, checks: checks}
}

// RegisterRoutes mounts fleet endpoints on the provided mux.
func (handler *FleetHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/bus/passengers", handler.handleRecordArrival)
	mux.HandleFunc("GET /api/bus/statistics/{bus_id}", handler.handleStatistics)
	mux.HandleFunc("GET /api/bus/arrivals/{bus_id}", handler.handleArrivals)
	mux.HandleFunc("GET /api/bus/status", handler.handleStatus)
	mux.HandleFunc("POST /api/reset-database", handler.handleReset)
	mux.HandleFunc("GET /api/health", handler.handleHealth)
}

// ----- general helpers -----

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *FleetHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
// Client errors log at WARN; only 5xx carries a stack.
func (handler *FleetHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	switch {
	case status >= 500:
		handler.logger.Error(ctx, "http_internal_error", msg, err, nil)
	case status == http.StatusNotFound:
		handler.logger.Warn(ctx, "not_found", msg, err, nil)
	case status == http.StatusUnsupportedMediaType:
		handler.logger.Warn(ctx, "unsupported_media_type", msg, err, nil)
	default:
		handler.logger.Warn(ctx, "validation_failed", msg, err, nil)
	}

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// serviceError maps domain errors to 4xx and everything else to 500.
func (handler *FleetHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bus.ErrBusNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "bus not found", err)
	case errors.Is(err, bus.ErrCapacityExceeded),
		errors.Is(err, bus.ErrInvalidQuantity),
		errors.Is(err, bus.ErrNegativeCount),
		errors.Is(err, bus.ErrInvalidStatusTransition),
		errors.Is(err, arrival.ErrInvalidTimeRange):
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		handler.httpError(ctx, w, http.StatusServiceUnavailable, "request timed out", err)
	default:
		// distinguish DB failures from anything else
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctx, w, http.StatusInternalServerError, "internal error", err)
	}
}

// busIDFromPath parses {bus_id}.
func busIDFromPath(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("bus_id"))
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("bus_id must be an integer")
	}
	return id, nil
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *FleetHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = uuid.NewString()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// CORS allows browser dashboards on any origin to call the API.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		h.Set("Access-Control-Max-Age", "600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
