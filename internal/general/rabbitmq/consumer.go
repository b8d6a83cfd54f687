package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned when the broker ends a consumer's stream.
var ErrDeliveriesClosed = errors.New("rabbitmq: deliveries closed")

// newConsumerChannel returns a fresh channel with prefetch (QoS) applied.
func (client *Client) newConsumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	// quick fail if no connection
	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	// open a new channel
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	// set prefetch if requested
	if prefetch < 0 {
		prefetch = 1
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
		}
	}

	return ch, nil
}

// Handler processes one delivery. Returning an error nacks it without requeue.
type Handler func(context.Context, amqp.Delivery) error

// Subscribe declares an exclusive, auto-delete, server-named queue on exchange,
// binds it to every routing key and consumes it until ctx is done or the channel closes.
// The queue lives as long as this consumer, so each instance sees every message once.
func (client *Client) Subscribe(
	ctx context.Context,
	exchange string,
	routingKeys []string,
	consumerTag string,
	prefetch int,
	handler Handler,
) error {
	ch, err := client.newConsumerChannel(prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare subscriber queue: %w", err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: bind %s to %s (%s): %w", q.Name, exchange, key, err)
		}
	}

	client.logger.Info(client.logCtx, "rabbitmq_subscribed", "Subscriber queue bound", map[string]any{
		"queue":        q.Name,
		"exchange":     exchange,
		"routing_keys": routingKeys,
	})

	return consumeLoop(ctx, ch, q.Name, consumerTag, true, handler)
}

// Consume starts consuming messages from a named queue with manual acks.
func (client *Client) Consume(
	ctx context.Context,
	queue string,
	consumerTag string,
	prefetch int,
	handler Handler,
) error {
	// open a fresh channel for this consumer, apply QoS if prefetch > 0
	ch, err := client.newConsumerChannel(prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	return consumeLoop(ctx, ch, queue, consumerTag, false, handler)
}

// consumeLoop drains deliveries on ch, acking after handler succeeds.
func consumeLoop(
	ctx context.Context,
	ch *amqp.Channel,
	queue string,
	consumerTag string,
	exclusive bool,
	handler Handler,
) error {
	deliveries, err := ch.Consume(
		queue,
		consumerTag,
		false,     // autoAck
		exclusive, // exclusive
		false,     // noLocal (ignored by RabbitMQ)
		false,     // noWait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume(%s): %w", queue, err)
	}

	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			if consumerTag != "" {
				_ = ch.Cancel(consumerTag, false)
			}
			return nil

		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq: channel closed while consuming %s: %w", queue, cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				// deliveries stream ended
				return ErrDeliveriesClosed
			}

			hCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := handler(hCtx, d)
			cancel()

			if err != nil {
				_ = d.Nack(false, false) // drop poison message
				continue
			}
			_ = d.Ack(false)
		}
	}
}
