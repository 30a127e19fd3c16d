package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	bookingserrors "pawwalk/internal/bookings/errors"
	sqlitedb "pawwalk/pkg/db/sqlite"
	"pawwalk/pkg/model"
)

const bookingColumns = `id, owner_id, walker_id, dog_ids, scheduled_at, duration_minutes, notes,
	payment_id, status, cancellation_reason, version, created_at, updated_at`

type sqliteBookingRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteBookingRepository(db *sql.DB) BookingRepository {
	return &sqliteBookingRepository{db: db, now: time.Now}
}

func (r *sqliteBookingRepository) Save(ctx context.Context, booking *model.Booking) error {
	dogIDs, err := json.Marshal(booking.DogIDs)
	if err != nil {
		return fmt.Errorf("failed to encode dog ids: %w", err)
	}

	stamp(booking, r.now())
	current := booking.Version
	next := current + 1

	if current == 0 {
		_, err := r.db.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			booking.ID, booking.OwnerID, booking.WalkerID, string(dogIDs),
			sqlitedb.ToMillis(booking.ScheduledAt), booking.DurationMinutes, booking.Notes,
			booking.PaymentID, string(booking.Status), booking.CancellationReason, next,
			sqlitedb.ToMillis(booking.CreatedAt), sqlitedb.ToMillis(booking.UpdatedAt),
		)
		if err != nil {
			if sqlitedb.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s already exists", bookingserrors.ErrVersionConflict, booking.ID)
			}
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		booking.Version = next
		return nil
	}

	result, err := r.db.ExecContext(ctx, `UPDATE bookings SET
			owner_id = ?, walker_id = ?, dog_ids = ?, scheduled_at = ?, duration_minutes = ?,
			notes = ?, payment_id = ?, status = ?, cancellation_reason = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		booking.OwnerID, booking.WalkerID, string(dogIDs), sqlitedb.ToMillis(booking.ScheduledAt),
		booking.DurationMinutes, booking.Notes, booking.PaymentID, string(booking.Status),
		booking.CancellationReason, next, sqlitedb.ToMillis(booking.UpdatedAt),
		booking.ID, current,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s at version %d", bookingserrors.ErrVersionConflict, booking.ID, current)
	}

	booking.Version = next
	return nil
}

func (r *sqliteBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if err != nil {
		if sqlitedb.IsNoRows(err) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return booking, nil
}

func (r *sqliteBookingRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE owner_id = ? ORDER BY scheduled_at DESC, id ASC`, ownerID)
}

func (r *sqliteBookingRepository) FindStale(ctx context.Context, status model.BookingStatus, before time.Time, limit int) ([]*model.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status = ? AND updated_at < ? ORDER BY updated_at ASC LIMIT ?`,
		string(status), sqlitedb.ToMillis(before), limit)
}

func (r *sqliteBookingRepository) FindUpdatedSince(ctx context.Context, status model.BookingStatus, since time.Time, afterID string, limit int) ([]*model.Booking, error) {
	at := sqlitedb.ToMillis(since)
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status = ? AND (updated_at > ? OR (updated_at = ? AND id > ?))
		ORDER BY updated_at ASC, id ASC LIMIT ?`,
		string(status), at, at, afterID, limit)
}

func (r *sqliteBookingRepository) query(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func scanBooking(row sqlitedb.Scanner) (*model.Booking, error) {
	var (
		b                                 model.Booking
		dogIDs, status                    string
		scheduledAt, createdAt, updatedAt int64
	)
	if err := row.Scan(
		&b.ID, &b.OwnerID, &b.WalkerID, &dogIDs, &scheduledAt, &b.DurationMinutes, &b.Notes,
		&b.PaymentID, &status, &b.CancellationReason, &b.Version, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dogIDs), &b.DogIDs); err != nil {
		return nil, fmt.Errorf("invalid dog ids: %w", err)
	}
	b.Status = model.BookingStatus(status)
	b.ScheduledAt = sqlitedb.FromMillis(scheduledAt)
	b.CreatedAt = sqlitedb.FromMillis(createdAt)
	b.UpdatedAt = sqlitedb.FromMillis(updatedAt)
	return &b, nil
}
