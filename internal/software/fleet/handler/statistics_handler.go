package handler

import (
	"context"
	"net/http"
	"time"
)

// --- Handler: GET /api/bus/statistics/{bus_id} ---

func (handler *FleetHTTPHandler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	busID, err := busIDFromPath(r)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}
	ctx = handler.logger.WithBusID(ctx, busID)

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stats, err := handler.svc.GetStatistics(ctxWithTimeout, busID, r.URL.Query().Get("time_range"))
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, stats)
}

// --- Handler: GET /api/bus/arrivals/{bus_id} ---

func (handler *FleetHTTPHandler) handleArrivals(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	busID, err := busIDFromPath(r)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}
	ctx = handler.logger.WithBusID(ctx, busID)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	list, err := handler.svc.ListArrivals(ctxWithTimeout, busID, r.URL.Query().Get("time_range"))
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, list)
}
