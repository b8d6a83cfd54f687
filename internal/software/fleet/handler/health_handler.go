package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// ----- Handler: GET /api/health -----

// handleHealth reports "ok" when every dependency check passes and "degraded" with 503 otherwise.
func (handler *FleetHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	type resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}
	out := resp{Status: "ok"}
	code := http.StatusOK

	names := make([]string, 0, len(handler.checks))
	for name := range handler.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if out.Checks == nil {
			out.Checks = make(map[string]string, len(names))
		}
		if err := handler.checks[name](ctx); err != nil {
			out.Checks[name] = err.Error()
			out.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		out.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(out)
}
