// Package broker implements the AMQP 0-9-1 transport: topology
// declaration, the consumer main loop, and the DLQ reprocessor.
package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names the exchange/queue/DLX/DLQ/routing-key set declared at
// startup.
type Topology struct {
	Exchange   string
	DLX        string
	Queue      string
	DLQ        string
	RoutingKey string
}

// DefaultTopology returns the default exchange/queue/DLX/DLQ/routing-key
// names used when no overrides are configured.
func DefaultTopology() Topology {
	return Topology{
		Exchange:   "logs_default",
		DLX:        "logs_default.dlx",
		Queue:      "nubla_logs_default",
		DLQ:        "nubla_logs_default.dlq",
		RoutingKey: "nubla.log.default",
	}
}

// Declare idempotently declares the exchange/DLX/queue/DLQ topology on ch.
// A non-passive declare with matching properties against an existing
// entity is a broker-side no-op, while one against an incompatible entity
// returns a channel error, which the caller must treat as a hard startup
// failure.
func Declare(ch *amqp.Channel, t Topology) error {
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}
	if err := ch.ExchangeDeclare(t.DLX, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlx %s: %w", t.DLX, err)
	}

	qArgs := amqp.Table{"x-dead-letter-exchange": t.DLX}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, qArgs); err != nil {
		return fmt.Errorf("declare queue %s: %w", t.Queue, err)
	}
	if err := ch.QueueBind(t.Queue, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", t.Queue, t.Exchange, err)
	}

	if _, err := ch.QueueDeclare(t.DLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq %s: %w", t.DLQ, err)
	}
	if err := ch.QueueBind(t.DLQ, "#", t.DLX, false, nil); err != nil {
		return fmt.Errorf("bind dlq %s to %s: %w", t.DLQ, t.DLX, err)
	}

	return nil
}
