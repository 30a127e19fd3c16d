package repository

import (
	"context"
	"time"

	"pawwalk/pkg/model"
)

// BookingRepository persists bookings with optimistic concurrency. Save inserts when
// Version is zero and otherwise replaces the stored row only if its version still
// matches; on success the booking's Version is advanced in place.
type BookingRepository interface {
	Save(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	// FindByOwner returns the owner's bookings, latest scheduled_at first.
	FindByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error)
	// FindStale returns up to limit bookings in status last updated before the cutoff.
	FindStale(ctx context.Context, status model.BookingStatus, before time.Time, limit int) ([]*model.Booking, error)
	// FindUpdatedSince pages through bookings in status ordered by (updated_at, id),
	// starting after the (since, afterID) position. Pass an empty afterID to include
	// bookings updated exactly at since.
	FindUpdatedSince(ctx context.Context, status model.BookingStatus, since time.Time, afterID string, limit int) ([]*model.Booking, error)
}

func stamp(booking *model.Booking, now time.Time) {
	now = now.UTC().Truncate(time.Millisecond)
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
}
