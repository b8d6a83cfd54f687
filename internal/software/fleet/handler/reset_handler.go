package handler

import (
	"context"
	"net/http"
	"time"
)

// --- Handler: POST /api/reset-database ---

func (handler *FleetHTTPHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	// reset waits for in-flight arrivals, so give it more room
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	res, err := handler.svc.ResetAll(ctxWithTimeout)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.logger.Info(ctxWithTimeout, "reset_requested", "Fleet reset via API", map[string]any{
		"remote_addr": r.RemoteAddr,
	})
	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
