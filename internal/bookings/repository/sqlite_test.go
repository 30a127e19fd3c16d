package repository

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	bookingserrors "pawwalk/internal/bookings/errors"
	sqlitemigrate "pawwalk/internal/migrations/sqlite"
	"pawwalk/pkg/client"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlitemigrate.RunMigration(context.Background(), db, logger.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newBooking(id, owner string, scheduledAt time.Time) *model.Booking {
	return &model.Booking{
		ID:              id,
		OwnerID:         owner,
		WalkerID:        "walker-1",
		DogIDs:          []string{"dog-2", "dog-1"},
		ScheduledAt:     scheduledAt,
		DurationMinutes: 30,
		Notes:           "side gate",
		PaymentID:       "p-" + id,
		Status:          model.BookingPending,
	}
}

func TestSQLiteBookingRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteBookingRepository(openTestDB(t))
	at := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)

	b := newBooking("b-1", "owner-1", at)
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if b.Version != 1 {
		t.Errorf("version after insert = %d, want 1", b.Version)
	}
	if b.CreatedAt.IsZero() || b.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}

	got, err := repo.FindByID(ctx, "b-1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !got.ScheduledAt.Equal(at) {
		t.Errorf("scheduled_at = %v, want %v", got.ScheduledAt, at)
	}
	if !reflect.DeepEqual(got.DogIDs, []string{"dog-2", "dog-1"}) {
		t.Errorf("dog ids order lost: %v", got.DogIDs)
	}
	if got.Status != model.BookingPending || got.PaymentID != "p-b-1" || got.Version != 1 {
		t.Errorf("unexpected booking: %+v", got)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteBookingRepository_OptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteBookingRepository(openTestDB(t))

	b := newBooking("b-1", "owner-1", time.Now().Add(time.Hour))
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("insert: %v", err)
	}

	first, _ := repo.FindByID(ctx, "b-1")
	second, _ := repo.FindByID(ctx, "b-1")

	first.Status = model.BookingConfirmed
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("version = %d, want 2", first.Version)
	}

	second.Status = model.BookingCancelled
	if err := repo.Save(ctx, second); !errors.Is(err, bookingserrors.ErrVersionConflict) {
		t.Fatalf("stale update: expected ErrVersionConflict, got %v", err)
	}
	if second.Version != 1 {
		t.Errorf("stale booking version advanced to %d", second.Version)
	}

	stored, _ := repo.FindByID(ctx, "b-1")
	if stored.Status != model.BookingConfirmed {
		t.Errorf("stored status = %s, want confirmed", stored.Status)
	}

	dup := newBooking("b-1", "owner-1", time.Now().Add(time.Hour))
	if err := repo.Save(ctx, dup); !errors.Is(err, bookingserrors.ErrVersionConflict) {
		t.Errorf("duplicate insert: expected ErrVersionConflict, got %v", err)
	}
}

func TestSQLiteBookingRepository_FindByOwnerSortedDescending(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteBookingRepository(openTestDB(t))
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	for i, offset := range []int{2, 5, 1} {
		b := newBooking(string(rune('a'+i)), "owner-1", base.Add(time.Duration(offset)*time.Hour))
		if err := repo.Save(ctx, b); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := repo.Save(ctx, newBooking("other", "owner-2", base)); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.FindByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("FindByOwner() error = %v", err)
	}
	var ids []string
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	if !reflect.DeepEqual(ids, []string{"b", "a", "c"}) {
		t.Errorf("order = %v, want [b a c]", ids)
	}

	none, err := repo.FindByOwner(ctx, "nobody")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %v, %v", none, err)
	}
}

func TestSQLiteBookingRepository_FindStale(t *testing.T) {
	ctx := context.Background()
	r := NewSQLiteBookingRepository(openTestDB(t)).(*sqliteBookingRepository)
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r.now = func() time.Time { return old }
	for _, id := range []string{"stale-1", "stale-2"} {
		if err := r.Save(ctx, newBooking(id, "owner-1", old.Add(48*time.Hour))); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	confirmed := newBooking("stale-confirmed", "owner-1", old.Add(48*time.Hour))
	confirmed.Status = model.BookingConfirmed
	if err := r.Save(ctx, confirmed); err != nil {
		t.Fatalf("save: %v", err)
	}

	r.now = func() time.Time { return old.Add(time.Hour) }
	if err := r.Save(ctx, newBooking("fresh", "owner-1", old.Add(48*time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := r.FindStale(ctx, model.BookingPending, old.Add(30*time.Minute), 10)
	if err != nil {
		t.Fatalf("FindStale() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("stale bookings = %d, want 2", len(got))
	}

	limited, _ := r.FindStale(ctx, model.BookingPending, old.Add(30*time.Minute), 1)
	if len(limited) != 1 {
		t.Errorf("limit not applied, got %d", len(limited))
	}
}

func TestSQLiteBookingRepository_FindUpdatedSince(t *testing.T) {
	ctx := context.Background()
	r := NewSQLiteBookingRepository(openTestDB(t)).(*sqliteBookingRepository)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	save := func(id string, at time.Time, status model.BookingStatus) {
		t.Helper()
		r.now = func() time.Time { return at }
		b := newBooking(id, "owner-1", base.Add(48*time.Hour))
		b.Status = status
		if err := r.Save(ctx, b); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	save("too-old", base.Add(-time.Hour), model.BookingCancelled)
	save("b", base, model.BookingCancelled)
	save("a", base, model.BookingCancelled)
	save("c", base.Add(time.Minute), model.BookingCancelled)
	save("live", base.Add(time.Minute), model.BookingConfirmed)

	var seen []string
	since, afterID := base, ""
	for {
		page, err := r.FindUpdatedSince(ctx, model.BookingCancelled, since, afterID, 2)
		if err != nil {
			t.Fatalf("FindUpdatedSince() error = %v", err)
		}
		for _, b := range page {
			seen = append(seen, b.ID)
		}
		if len(page) < 2 {
			break
		}
		last := page[len(page)-1]
		since, afterID = last.UpdatedAt, last.ID
	}

	want := []string{"a", "b", "c"}
	if len(seen) != len(want) {
		t.Fatalf("pages = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("pages = %v, want %v", seen, want)
			break
		}
	}
}
