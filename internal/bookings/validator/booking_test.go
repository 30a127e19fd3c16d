package validator

import (
	"strings"
	"testing"
	"time"

	apperrors "pawwalk/pkg/errors"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
	"pawwalk/pkg/validation"
)

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func validBooking() *model.Booking {
	return &model.Booking{
		ID:              "b-1",
		OwnerID:         "owner-1",
		WalkerID:        "walker-1",
		DogIDs:          []string{"dog-1", "dog-2"},
		ScheduledAt:     fixedNow.Add(24 * time.Hour),
		DurationMinutes: 30,
		Status:          model.BookingPending,
	}
}

func TestBookingValidator_Validate(t *testing.T) {
	v := NewBookingValidator(logger.Discard(), func() time.Time { return fixedNow })

	tests := []struct {
		name      string
		mutate    func(b *model.Booking)
		wantField string
	}{
		{name: "valid booking", mutate: func(b *model.Booking) {}},
		{name: "missing id", mutate: func(b *model.Booking) { b.ID = "" }, wantField: "id"},
		{name: "missing owner", mutate: func(b *model.Booking) { b.OwnerID = "" }, wantField: "owner_id"},
		{name: "missing walker", mutate: func(b *model.Booking) { b.WalkerID = "" }, wantField: "walker_id"},
		{name: "empty dog ids", mutate: func(b *model.Booking) { b.DogIDs = []string{} }, wantField: "dog_ids"},
		{name: "nil dog ids", mutate: func(b *model.Booking) { b.DogIDs = nil }, wantField: "dog_ids"},
		{name: "blank dog id", mutate: func(b *model.Booking) { b.DogIDs = []string{"dog-1", ""} }, wantField: "dog_ids[1]"},
		{name: "scheduled now", mutate: func(b *model.Booking) { b.ScheduledAt = fixedNow }, wantField: "scheduled_at"},
		{name: "scheduled in the past", mutate: func(b *model.Booking) { b.ScheduledAt = fixedNow.Add(-time.Minute) }, wantField: "scheduled_at"},
		{name: "missing scheduled at", mutate: func(b *model.Booking) { b.ScheduledAt = time.Time{} }, wantField: "scheduled_at"},
		{name: "walk too short", mutate: func(b *model.Booking) { b.DurationMinutes = 5 }, wantField: "duration_minutes"},
		{name: "notes too long", mutate: func(b *model.Booking) { b.Notes = strings.Repeat("a", 501) }, wantField: "notes"},
		{name: "unknown status", mutate: func(b *model.Booking) { b.Status = "paused" }, wantField: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			tt.mutate(b)

			err := v.Validate(b)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			if !apperrors.HasCode(err, apperrors.CodeInvalidBooking) {
				t.Fatalf("expected INVALID_BOOKING, got %v", err)
			}
			errs, _ := apperrors.AsAppError(err).Details["errors"].([]validation.ValidationError)
			for _, e := range errs {
				if e.Field == tt.wantField {
					return
				}
			}
			t.Errorf("expected an error on %q, got %+v", tt.wantField, errs)
		})
	}
}

func TestBookingValidator_NilBooking(t *testing.T) {
	v := NewBookingValidator(logger.Discard(), nil)
	if err := v.Validate(nil); !apperrors.HasCode(err, apperrors.CodeInvalidBooking) {
		t.Errorf("expected INVALID_BOOKING, got %v", err)
	}
}
