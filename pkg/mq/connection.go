package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "email.analyser.events"

	RoutingKeyEmailIngested = "email.ingested"
	RoutingKeyEmailAnalyzed = "email.analyzed"

	// QueueEmailIngested is the worker's analysis queue.
	QueueEmailIngested = "email.ingested.analyze.q"
)

// NewConnection dials RabbitMQ and opens one channel on it.
func NewConnection(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return conn, ch, nil
}

// DeclareTopology declares the events exchange and the dead letter exchange.
// Both are durable topic exchanges.
func DeclareTopology(ch *amqp091.Channel) error {
	for _, name := range []string{ExchangeName, DLQExchangeName} {
		if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", name, err)
		}
	}
	return nil
}

// declareBoundQueue declares a durable queue and binds it to exchange.
func declareBoundQueue(ch *amqp091.Channel, exchange, queue, routingKey string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind queue %s to %s: %w", queue, exchange, err)
	}
	return q, nil
}
