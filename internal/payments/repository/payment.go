package repository

import (
	"context"
	"time"

	"pawwalk/pkg/model"
)

// PaymentRepository persists payments with the same optimistic versioning as bookings.
// Source is never stored.
type PaymentRepository interface {
	Save(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	FindStale(ctx context.Context, status model.PaymentStatus, before time.Time, limit int) ([]*model.Payment, error)
}

func stamp(payment *model.Payment, now time.Time) {
	now = now.UTC().Truncate(time.Millisecond)
	if payment.Timestamp.IsZero() {
		payment.Timestamp = now
	}
	payment.UpdatedAt = now
}
