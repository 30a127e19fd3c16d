package validator

import (
	"time"

	apperrors "pawwalk/pkg/errors"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
	"pawwalk/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	now      func() time.Time
	logger   *logger.Logger
}

// NewBookingValidator builds a validator that judges scheduled_at against now. Pass nil
// to use the wall clock.
func NewBookingValidator(log *logger.Logger, now func() time.Time) *BookingValidator {
	if now == nil {
		now = time.Now
	}
	return &BookingValidator{
		validate: validation.New(),
		now:      now,
		logger:   log,
	}
}

// Validate checks a booking that is about to be created. It never touches storage.
func (v *BookingValidator) Validate(booking *model.Booking) error {
	if booking == nil {
		return apperrors.InvalidBooking("booking is required", nil)
	}

	errs, err := validation.Struct(v.validate, booking)
	if err != nil {
		return apperrors.Internal("failed to validate booking", err)
	}

	if !booking.ScheduledAt.IsZero() && !booking.ScheduledAt.After(v.now()) {
		errs = append(errs, validation.ValidationError{
			Field:   "scheduled_at",
			Message: "scheduled_at must be in the future",
		})
	}

	if len(errs) > 0 {
		v.logger.Debug("Booking rejected", "booking_id", booking.ID, "errors", errs.Error())
		return apperrors.InvalidBooking("invalid booking", errs.Details())
	}
	return nil
}
