package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bus-fleet/internal/general/contracts"
	"bus-fleet/internal/general/logger"
	"bus-fleet/internal/general/rabbitmq"
	"bus-fleet/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broadcaster pushes one frame to every live subscriber.
type Broadcaster interface {
	Broadcast(v any) error
}

// Subscriber binds a private queue to exchange and feeds its deliveries to handler.
type Subscriber interface {
	Subscribe(ctx context.Context, exchange string, routingKeys []string, consumerTag string, prefetch int, handler rabbitmq.Handler) error
}

// FeedRelay turns bus.status.* and fleet.reset messages into WebSocket frames.
type FeedRelay struct {
	logger   *logger.Logger
	sub      Subscriber
	out      Broadcaster
	prefetch int
}

// ResetFrame is the data of a fleet_reset frame.
type ResetFrame struct {
	Buses     int       `json:"buses"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFeedRelay creates a relay from sub to out.
func NewFeedRelay(logger *logger.Logger, sub Subscriber, out Broadcaster, prefetch int) *FeedRelay {
	return &FeedRelay{logger: logger, sub: sub, out: out, prefetch: prefetch}
}

// Run subscribes until ctx is done, resubscribing with backoff when the channel drops.
func (relay *FeedRelay) Run(ctx context.Context) {
	keys := []string{contracts.RouteBusStatusPrefix + "*", contracts.RouteFleetReset}
	backoff := time.Second

	for {
		err := relay.sub.Subscribe(ctx, contracts.ExchangeFleetTopic, keys, "fleet-feed", relay.prefetch, relay.HandleDelivery)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("subscription ended")
		}
		relay.logger.Warn(ctx, "feed_subscription_lost", "Fleet feed subscription lost, retrying", err, map[string]any{
			"backoff_ms": backoff.Milliseconds(),
		})

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// HandleDelivery decodes one message and broadcasts the matching frame.
// Undecodable messages return an error so the consumer drops them.
func (relay *FeedRelay) HandleDelivery(ctx context.Context, d amqp.Delivery) error {
	var frame contracts.WSEvent

	switch {
	case strings.HasPrefix(d.RoutingKey, contracts.RouteBusStatusPrefix):
		var msg contracts.BusStatusMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			relay.logger.Warn(ctx, "feed_decode_failed", "Dropping undecodable bus status message", err, map[string]any{
				"routing_key": d.RoutingKey,
			})
			return err
		}
		frame = contracts.WSEvent{
			Type: contracts.WSTypeBusStatus,
			Data: ports.BusStatusResult{
				BusID:                  msg.BusID,
				Status:                 msg.Status,
				CurrentCountPassengers: msg.CurrentPassengers,
				MaxCapacity:            msg.MaxCapacity,
				Revenue:                msg.Revenue,
			},
		}

	case d.RoutingKey == contracts.RouteFleetReset:
		var msg contracts.FleetResetMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			relay.logger.Warn(ctx, "feed_decode_failed", "Dropping undecodable fleet reset message", err, nil)
			return err
		}
		frame = contracts.WSEvent{
			Type: contracts.WSTypeFleetReset,
			Data: ResetFrame{Buses: msg.Buses, Timestamp: msg.Timestamp},
		}

	default:
		return fmt.Errorf("unexpected routing key %q", d.RoutingKey)
	}

	if err := relay.out.Broadcast(frame); err != nil {
		relay.logger.Error(ctx, "feed_broadcast_failed", "Failed to broadcast fleet frame", err, nil)
		return err
	}
	return nil
}
