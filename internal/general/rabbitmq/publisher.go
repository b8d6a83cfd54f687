package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// MQPublisher adapts Client to ports.MessagePublisher.
type MQPublisher struct {
	Client *Client
}

// NewMQPublisher constructs an MQPublisher using the provided RabbitMQ client.
func NewMQPublisher(client *Client) *MQPublisher {
	return &MQPublisher{Client: client}
}

// Publish sends body to exchange with routingKey and waits for the broker confirm.
func (publisher *MQPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	return publisher.Client.PublishMessage(ctx, exchange, routingKey, body)
}

// PublishMessage publishes a persistent JSON message and blocks until it is confirmed,
// ctx is done, or publishTimeout elapses.
func (client *Client) PublishMessage(ctx context.Context, exchange, routingKey string, body []byte) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	// quick fail if no channel
	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	// confirms arrive in publish order; one publisher at a time keeps them paired
	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms
	if confirms == nil {
		return errors.New("rabbitmq: client closed")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := ch.PublishWithContext(ctx, exchange, routingKey, true /* mandatory */, false, /* immediate */
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("rabbitmq: publish %s/%s: %w", exchange, routingKey, err)
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return errors.New("rabbitmq: confirm stream closed")
		}
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish %s/%s not acknowledged", exchange, routingKey)
		}
	case <-ctx.Done():
		// drain the pending confirm so the next publisher reads its own
		select {
		case c, ok := <-confirms:
			if ok && !c.Ack {
				return fmt.Errorf("rabbitmq: publish %s/%s not acknowledged after timeout", exchange, routingKey)
			}
		case <-time.After(2 * time.Second):
		}
		return ctx.Err()
	}

	return nil
}
