package notifications

import (
	"context"
	"fmt"

	"pawwalk/pkg/kafka"
	"pawwalk/pkg/middleware"
	"pawwalk/pkg/model"
)

const (
	notificationSchemaVersion = "1"
	notificationSource        = "pawwalk-bookings"
)

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaNotifier publishes notifications keyed by user id so each user's events
// stay ordered within a partition.
type KafkaNotifier struct {
	producer publisher
}

func NewKafkaNotifier(producer publisher) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

func (n *KafkaNotifier) Notify(ctx context.Context, userID string, event model.Event) error {
	msg, err := kafka.NewMessage().
		WithKey(userID).
		WithValue(Notification{UserID: userID, Event: event}).
		WithEventType(event.Type).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		WithSchemaVersion(notificationSchemaVersion).
		WithSource(notificationSource).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build notification: %w", err)
	}

	if err := n.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
