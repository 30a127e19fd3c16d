package notifications

import (
	"context"

	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
)

type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.Component("notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, userID string, event model.Event) error {
	n.log.InfoContext(ctx, "Notification",
		"user_id", userID,
		"event", event.Type,
		"booking_id", event.BookingID,
		"payment_id", event.PaymentID,
		"status", event.Status,
	)
	return nil
}
