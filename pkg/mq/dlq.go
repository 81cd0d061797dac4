package mq

import (
	"context"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DLQExchangeName = "email.analyser.dlq"
)

// DLQQueueName 返回 routing key 对应的死信队列名
func DLQQueueName(routingKey string) string {
	return routingKey + ".dlq"
}

// DeclareDLQQueue declares the dead letter queue for routingKey, bound to
// the DLQ exchange. DeclareTopology must have run on ch.
func DeclareDLQQueue(ch *amqp091.Channel, routingKey string) (amqp091.Queue, error) {
	return declareBoundQueue(ch, DLQExchangeName, DLQQueueName(routingKey), routingKey)
}

// DLQHeaders 组装死信消息头
func DLQHeaders(originalError, reason string, at time.Time) amqp091.Table {
	return amqp091.Table{
		"x-original-error": originalError,
		"x-error-reason":   reason,
		"x-failed-at":      "email-analyser-worker",
		"x-failed-time":    at.UTC().Format(time.RFC3339),
	}
}

// PublishToDLQ publishes the raw message body to the dead letter exchange.
func (p *Publisher) PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, reason string) error {
	return p.publish(ctx, DLQExchangeName, routingKey, payload, DLQHeaders(originalError, reason, time.Now()))
}
