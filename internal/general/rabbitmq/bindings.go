package rabbitmq

import (
	"fmt"

	"bus-fleet/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

// declareTopology is idempotent and runs on every (re)connect.
func declareTopology(ch *amqp.Channel) error {
	// 1. Exchanges
	if err := ch.ExchangeDeclare(contracts.ExchangeFleetTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangeFleetTopic, err)
	}

	// 2. Durable queues. Per-instance feed queues are declared by Subscribe.
	if _, err := ch.QueueDeclare(contracts.QueueBusArrivals, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", contracts.QueueBusArrivals, err)
	}

	// 3. Bindings
	if err := ch.QueueBind(contracts.QueueBusArrivals, contracts.RouteBusArrivalPrefix+"*", contracts.ExchangeFleetTopic, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", contracts.QueueBusArrivals, contracts.ExchangeFleetTopic, err)
	}

	return nil
}
