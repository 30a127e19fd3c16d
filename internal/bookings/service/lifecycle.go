package service

import (
	"context"

	apperrors "pawwalk/pkg/errors"
	"pawwalk/pkg/model"
	"pawwalk/pkg/sanitizer"
)

func (s *bookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	return s.withBooking(ctx, id, func(booking *model.Booking) error {
		if booking.Status.IsTerminal() {
			return apperrors.InvalidTransition("booking", string(booking.Status), string(model.BookingCancelled))
		}

		if err := s.refundIfCaptured(ctx, booking); err != nil {
			return err
		}

		if err := s.finalise(ctx, booking, model.BookingCancelled, model.CancelReasonOwnerRequest); err != nil {
			return err
		}
		s.notify(ctx, model.EventBookingCancelled, booking, booking.OwnerID, booking.WalkerID)
		return nil
	})
}

func (s *bookingService) StartWalk(ctx context.Context, id string) (*model.Booking, error) {
	return s.withBooking(ctx, id, func(booking *model.Booking) error {
		if err := s.finalise(ctx, booking, model.BookingInProgress, ""); err != nil {
			return err
		}
		s.notify(ctx, model.EventBookingStarted, booking, booking.OwnerID)
		return nil
	})
}

func (s *bookingService) FinishWalk(ctx context.Context, id string) (*model.Booking, error) {
	return s.withBooking(ctx, id, func(booking *model.Booking) error {
		if err := s.finalise(ctx, booking, model.BookingCompleted, ""); err != nil {
			return err
		}
		s.notify(ctx, model.EventBookingCompleted, booking, booking.OwnerID, booking.WalkerID)
		return nil
	})
}

func (s *bookingService) ResolvePending(ctx context.Context, id string) (*model.Booking, error) {
	return s.withBooking(ctx, id, func(booking *model.Booking) error {
		if booking.Status != model.BookingPending {
			return nil
		}

		var payment *model.Payment
		if booking.PaymentID != "" {
			p, err := s.payments.GetByID(ctx, booking.PaymentID)
			if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
				return err
			}
			payment = p
		}

		switch {
		case payment == nil:
			// Create stopped before the payment was recorded, so nothing was charged.
			if err := s.finalise(ctx, booking, model.BookingCancelled, model.CancelReasonPaymentError); err != nil {
				return err
			}
			s.notify(ctx, model.EventBookingCancelled, booking, booking.OwnerID)
		case payment.Status == model.PaymentCompleted:
			if err := s.finalise(ctx, booking, model.BookingConfirmed, ""); err != nil {
				return err
			}
			s.notify(ctx, model.EventBookingConfirmed, booking, booking.OwnerID)
		case payment.Status == model.PaymentFailed:
			if err := s.finalise(ctx, booking, model.BookingCancelled, model.CancelReasonPaymentFailed); err != nil {
				return err
			}
			s.notify(ctx, model.EventBookingCancelled, booking, booking.OwnerID)
		default:
			s.cfg.Log.Debug("Pending booking waits for its payment",
				"booking_id", booking.ID,
				"payment_id", payment.ID,
				"payment_status", payment.Status,
			)
		}
		return nil
	})
}

// refundIfCaptured returns the full charge before a booking is cancelled.
func (s *bookingService) refundIfCaptured(ctx context.Context, booking *model.Booking) error {
	if booking.PaymentID == "" {
		return nil
	}

	payment, err := s.payments.GetByID(ctx, booking.PaymentID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil
		}
		return err
	}
	if payment.Status != model.PaymentCompleted {
		return nil
	}

	if _, err := s.payments.Refund(ctx, payment.ID, payment.Amount); err != nil {
		s.cfg.Log.Error("Refund failed, booking not cancelled",
			"booking_id", booking.ID,
			"payment_id", payment.ID,
			"error", err,
		)
		return err
	}
	return nil
}

// withBooking loads the booking under its lock and hands it to fn.
func (s *bookingService) withBooking(ctx context.Context, id string, fn func(*model.Booking) error) (*model.Booking, error) {
	id = sanitizer.NormalizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(booking); err != nil {
		return nil, err
	}
	return booking, nil
}
