package handler

import (
	"context"
	"net/http"
	"time"
)

// --- Handler: GET /api/bus/status ---

func (handler *FleetHTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	list, err := handler.svc.ListStatus(ctxWithTimeout)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, list)
}
