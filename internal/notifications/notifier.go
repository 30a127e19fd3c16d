// Package notifications delivers lifecycle events to users. Delivery is
// fire-and-forget: a failed notification never rolls back a state change.
package notifications

import (
	"context"
	"time"

	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
)

type Notifier interface {
	Notify(ctx context.Context, userID string, event model.Event) error
}

// Notification is the wire payload published by the broker notifiers.
type Notification struct {
	UserID string      `json:"user_id"`
	Event  model.Event `json:"event"`
}

// Dispatch sends event to each user and logs failures. It detaches from ctx
// cancellation so a client hanging up cannot drop a notification, but each
// send is still bounded by timeout.
func Dispatch(ctx context.Context, n Notifier, timeout time.Duration, log *logger.Logger, event model.Event, userIDs ...string) {
	if n == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		sendCtx, cancel := context.WithTimeout(base, timeout)
		err := n.Notify(sendCtx, userID, event)
		cancel()
		if err != nil {
			log.Warn("Failed to send notification",
				"user_id", userID,
				"event", event.Type,
				"booking_id", event.BookingID,
				"error", err,
			)
		}
	}
}
