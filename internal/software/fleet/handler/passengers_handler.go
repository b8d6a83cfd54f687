package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bus-fleet/internal/ports"

	"github.com/go-playground/validator/v10"
)

// --- Request DTO (HTTP boundary) ---

type recordArrivalRequest struct {
	BusID     *int         `json:"bus_id" validate:"required"`
	Entered   *int         `json:"entered" validate:"required,gte=0"`
	Exited    *int         `json:"exited" validate:"required,gte=0"`
	Timestamp *arrivalTime `json:"timestamp,omitempty"`
}

// naiveLayout is an ISO 8601 datetime without a zone; such values are taken as UTC.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// arrivalTime accepts RFC 3339 and zone-less ISO datetimes.
type arrivalTime struct {
	time.Time
}

func (at *arrivalTime) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		at.Time = t
		return nil
	}
	t, err := time.ParseInLocation(naiveLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("timestamp %q is not an ISO 8601 datetime", raw)
	}
	at.Time = t
	return nil
}

// value returns nil when the field was omitted.
func (at *arrivalTime) value() *time.Time {
	if at == nil {
		return nil
	}
	t := at.Time
	return &t
}

// ----- Handler: POST /api/bus/passengers -----

func (handler *FleetHTTPHandler) handleRecordArrival(w http.ResponseWriter, r *http.Request) {
	// generate a context with request ID
	ctx := handler.withReqID(r.Context(), r)

	// check the content type
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	// limit body size
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10) // 64 KiB
	defer r.Body.Close()

	// decode strictly
	var req recordArrivalRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		handler.httpError(ctx, w, http.StatusBadRequest, "request body must contain a single JSON object", nil)
		return
	}

	if err := handler.validate.Struct(req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, describeValidation(err), err)
		return
	}

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.RecordArrival(ctxWithTimeout, ports.RecordArrivalInput{
		BusID:     *req.BusID,
		Entered:   *req.Entered,
		Exited:    *req.Exited,
		Timestamp: req.Timestamp.value(),
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// describeValidation renders the first failed rule as a client-facing message.
func describeValidation(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return "invalid request"
	}
	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
