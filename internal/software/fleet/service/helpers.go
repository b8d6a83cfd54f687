package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"bus-fleet/internal/domain/arrival"
	"bus-fleet/internal/domain/bus"
	"bus-fleet/internal/general/contracts"
	"bus-fleet/internal/general/logger"
)

// logReadFailure keeps client mistakes at WARN and storage failures at ERROR.
func (service *fleetService) logReadFailure(ctx context.Context, action, msg string, err error) {
	switch {
	case errors.Is(err, bus.ErrBusNotFound):
		service.logger.Warn(ctx, "bus_not_found", "Unknown bus requested", err, nil)
	case errors.Is(err, arrival.ErrInvalidTimeRange):
		service.logger.Warn(ctx, "invalid_time_range", "Unknown time range requested", err, nil)
	default:
		service.logger.Error(ctx, action, msg, err, nil)
	}
}

func (service *fleetService) envelope(ctx context.Context) contracts.Envelope {
	return contracts.Envelope{
		CorrelationID: logger.RequestID(ctx),
		Producer:      producerName,
		SentAt:        service.now().UTC(),
	}
}

// publishStatus sends bus.status.{status}. Failures are logged only; the arrival is already committed.
func (service *fleetService) publishStatus(ctx context.Context, b *bus.Bus) {
	msg := contracts.BusStatusMessage{
		BusID:             b.ID,
		Status:            b.Status.String(),
		CurrentPassengers: b.CurrentPassengers,
		MaxCapacity:       b.MaxCapacity,
		Revenue:           b.Revenue,
		Timestamp:         b.UpdatedAt.UTC(),
		Envelope:          service.envelope(ctx),
	}
	service.publish(ctx, contracts.RouteBusStatusPrefix+b.Status.String(), msg)
}

// publishArrival sends bus.arrival.{bus_id}.
func (service *fleetService) publishArrival(ctx context.Context, e *arrival.Event, revenueDelta int64) {
	msg := contracts.ArrivalRecordedMessage{
		EventID:      e.ID,
		BusID:        e.BusID,
		Entered:      e.Entered,
		Exited:       e.Exited,
		RevenueDelta: revenueDelta,
		OccurredAt:   e.Timestamp,
		Envelope:     service.envelope(ctx),
	}
	service.publish(ctx, contracts.RouteBusArrivalPrefix+strconv.Itoa(e.BusID), msg)
}

// publishReset sends fleet.reset.
func (service *fleetService) publishReset(ctx context.Context, buses int) {
	msg := contracts.FleetResetMessage{
		Buses:     buses,
		Timestamp: service.now().UTC(),
		Envelope:  service.envelope(ctx),
	}
	service.publish(ctx, contracts.RouteFleetReset, msg)
}

func (service *fleetService) publish(ctx context.Context, routingKey string, msg any) {
	if service.pub == nil {
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		service.logger.Error(ctx, "event_encode_failed", "Failed to encode fleet event", err, map[string]any{
			"routing_key": routingKey,
		})
		return
	}

	// the request may already be cancelled; the commit is not, so finish the publish
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := service.pub.Publish(pubCtx, contracts.ExchangeFleetTopic, routingKey, body); err != nil {
		service.logger.Error(ctx, "event_publish_failed", "Failed to publish fleet event to RabbitMQ", err, map[string]any{
			"routing_key": routingKey,
		})
		return
	}

	service.logger.Debug(ctx, "event_published", "Published fleet event to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})
}
