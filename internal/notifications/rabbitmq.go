package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"pawwalk/pkg/middleware"
	"pawwalk/pkg/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQNotifier publishes to a durable topic exchange using the event type
// as routing key.
type RabbitMQNotifier struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

func NewRabbitMQNotifier(url, exchange string) (*RabbitMQNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitMQNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

func newRabbitMQNotifierWithChannel(ch amqpChannel, exchange string) *RabbitMQNotifier {
	return &RabbitMQNotifier{ch: ch, exchange: exchange}
}

func (n *RabbitMQNotifier) Notify(ctx context.Context, userID string, event model.Event) error {
	body, err := json.Marshal(Notification{UserID: userID, Event: event})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	err = n.ch.PublishWithContext(ctx, n.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: middleware.RequestIDFrom(ctx),
		Timestamp:     event.OccurredAt,
		Type:          event.Type,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (n *RabbitMQNotifier) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
