package service

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "pawwalk/internal/bookings/errors"
	"pawwalk/internal/bookings/repository"
	"pawwalk/internal/bookings/validator"
	"pawwalk/internal/notifications"
	paymentvalidator "pawwalk/internal/payments/validator"
	"pawwalk/pkg/config"
	apperrors "pawwalk/pkg/errors"
	"pawwalk/pkg/lock"
	"pawwalk/pkg/model"
	"pawwalk/pkg/sanitizer"

	"github.com/google/uuid"
)

// PaymentOrchestrator is the part of the payment service the booking lifecycle drives.
type PaymentOrchestrator interface {
	Process(ctx context.Context, payment *model.Payment) (*model.Payment, error)
	Refund(ctx context.Context, id string, amount int64) (*model.Payment, error)
	GetByID(ctx context.Context, id string) (*model.Payment, error)
}

type BookingService interface {
	// Create derives a booking and its payment from req and runs the payment once.
	// The booking returned is Confirmed or Cancelled. When the gateway outcome
	// is unknown the cancelled booking is returned together with a GatewayError.
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	FetchByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
	StartWalk(ctx context.Context, id string) (*model.Booking, error)
	FinishWalk(ctx context.Context, id string) (*model.Booking, error)
	// ResolvePending settles a booking left Pending by an interrupted Create,
	// using the recorded state of its payment.
	ResolvePending(ctx context.Context, id string) (*model.Booking, error)
}

type bookingService struct {
	repo             repository.BookingRepository
	payments         PaymentOrchestrator
	locker           lock.Locker
	validator        *validator.BookingValidator
	paymentValidator *paymentvalidator.PaymentValidator
	notifier         notifications.Notifier
	cfg              *config.Config
	newID            func() string
}

func NewBookingService(
	repo repository.BookingRepository,
	payments PaymentOrchestrator,
	locker lock.Locker,
	validator *validator.BookingValidator,
	paymentValidator *paymentvalidator.PaymentValidator,
	notifier notifications.Notifier,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:             repo,
		payments:         payments,
		locker:           locker,
		validator:        validator,
		paymentValidator: paymentValidator,
		notifier:         notifier,
		cfg:              cfg,
		newID:            uuid.NewString,
	}
}

func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	if req == nil {
		return nil, apperrors.InvalidBooking("booking request is required", nil)
	}

	s.sanitize(req)
	booking, payment := s.derive(req)

	if err := s.validator.Validate(booking); err != nil {
		return nil, err
	}
	if err := s.paymentValidator.Validate(payment); err != nil {
		return nil, err
	}

	// Held for the whole flow so a concurrent Cancel sees only the final state.
	unlock, err := s.lock(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.save(ctx, booking); err != nil {
		return nil, err
	}
	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"owner_id", booking.OwnerID,
		"walker_id", booking.WalkerID,
		"scheduled_at", booking.ScheduledAt,
	)

	// Once the booking is persisted the flow runs to a final state even if the
	// caller goes away; the gateway call is bounded by GatewayTimeout.
	ctx = context.WithoutCancel(ctx)

	processed, payErr := s.payments.Process(ctx, payment)
	switch {
	case payErr == nil && processed.Status == model.PaymentCompleted:
		if err := s.finalise(ctx, booking, model.BookingConfirmed, ""); err != nil {
			return nil, err
		}
		s.notify(ctx, model.EventBookingConfirmed, booking, booking.OwnerID)
		return booking, nil

	case payErr == nil:
		s.cfg.Log.Info("Payment declined",
			"booking_id", booking.ID,
			"payment_id", payment.ID,
			"failure_code", processed.FailureCode,
		)
		if err := s.finalise(ctx, booking, model.BookingCancelled, model.CancelReasonPaymentFailed); err != nil {
			return nil, err
		}
		s.notify(ctx, model.EventBookingCancelled, booking, booking.OwnerID)
		return booking, nil

	default:
		s.cfg.Log.Warn("Payment did not complete, cancelling booking",
			"booking_id", booking.ID,
			"payment_id", payment.ID,
			"error", payErr,
		)
		if err := s.finalise(ctx, booking, model.BookingCancelled, model.CancelReasonPaymentError); err != nil {
			s.cfg.Log.Error("Booking left pending", "booking_id", booking.ID, "error", err)
			return nil, payErr
		}
		s.notify(ctx, model.EventBookingCancelled, booking, booking.OwnerID)
		if apperrors.HasCode(payErr, apperrors.CodeGateway) {
			return booking, apperrors.Gateway("payment outcome unknown, booking cancelled", payErr).
				WithDetails(map[string]any{"booking_id": booking.ID, "payment_id": payment.ID})
		}
		return nil, payErr
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	id = sanitizer.NormalizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	return s.find(ctx, id)
}

func (s *bookingService) FetchByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	ownerID = sanitizer.NormalizeID(ownerID)
	if ownerID == "" {
		return nil, apperrors.InvalidInput("Owner ID cannot be empty")
	}

	bookings, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("failed to list bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) sanitize(req *model.CreateBookingRequest) {
	req.OwnerID = sanitizer.NormalizeID(req.OwnerID)
	req.WalkerID = sanitizer.NormalizeID(req.WalkerID)
	req.DogIDs = sanitizer.NormalizeIDs(req.DogIDs)
	req.Notes = sanitizer.NormalizeNotes(req.Notes)
	req.Currency = sanitizer.NormalizeCurrency(req.Currency)
	req.PaymentSource = sanitizer.NormalizeID(req.PaymentSource)
}

func (s *bookingService) derive(req *model.CreateBookingRequest) (*model.Booking, *model.Payment) {
	duration := req.DurationMinutes
	if duration == 0 {
		duration = s.cfg.DefaultWalkDurationMinutes
	}
	currency := req.Currency
	if currency == "" {
		currency = sanitizer.NormalizeCurrency(s.cfg.DefaultCurrency)
	}

	booking := &model.Booking{
		ID:              s.newID(),
		OwnerID:         req.OwnerID,
		WalkerID:        req.WalkerID,
		DogIDs:          req.DogIDs,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: duration,
		Notes:           req.Notes,
		PaymentID:       s.newID(),
		Status:          model.BookingPending,
	}
	payment := &model.Payment{
		ID:        booking.PaymentID,
		BookingID: booking.ID,
		Amount:    req.Amount,
		Currency:  currency,
		PayerID:   req.OwnerID,
		PayeeID:   req.WalkerID,
		Status:    model.PaymentPending,
		Source:    req.PaymentSource,
	}
	return booking, payment
}

// finalise applies a transition and persists it.
func (s *bookingService) finalise(ctx context.Context, booking *model.Booking, next model.BookingStatus, reason string) error {
	from := booking.Status
	if err := booking.TransitionTo(next); err != nil {
		return apperrors.InvalidTransition("booking", string(from), string(next))
	}
	if next == model.BookingCancelled {
		booking.CancellationReason = reason
	}

	if err := s.save(ctx, booking); err != nil {
		booking.Status = from
		booking.CancellationReason = ""
		return err
	}

	s.cfg.Log.Info("Booking transition",
		"booking_id", booking.ID,
		"payment_id", booking.PaymentID,
		"from", from,
		"to", next,
		"reason", reason,
	)
	return nil
}

func (s *bookingService) notify(ctx context.Context, eventType string, booking *model.Booking, userIDs ...string) {
	notifications.Dispatch(ctx, s.notifier, s.cfg.NotifyTimeout, s.cfg.Log,
		model.NewBookingEvent(eventType, booking), userIDs...)
}

func (s *bookingService) lock(ctx context.Context, id string) (lock.Unlock, error) {
	unlock, err := s.locker.Lock(ctx, lock.BookingKey(id))
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Timeout("timed out waiting for booking " + id)
		}
		return nil, apperrors.Persistence("failed to lock booking", err)
	}
	return unlock, nil
}

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Persistence("failed to load booking", err)
	}
	return booking, nil
}

func (s *bookingService) save(ctx context.Context, booking *model.Booking) error {
	if err := s.repo.Save(ctx, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrVersionConflict) {
			return apperrors.Persistence(fmt.Sprintf("booking %s was modified concurrently", booking.ID), err)
		}
		return apperrors.Persistence("failed to save booking", err)
	}
	return nil
}
