package consumer

import (
	"context"
	"fmt"

	"pawwalk/internal/bookings/service"
	apperrors "pawwalk/pkg/errors"
	"pawwalk/pkg/kafka"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/middleware"
	"pawwalk/pkg/model"
)

const (
	EventWalkStarted  = "walk.started"
	EventWalkFinished = "walk.finished"
)

// WalkEvent is published by the tracking service when a walker starts or ends a walk.
type WalkEvent struct {
	BookingID string `json:"booking_id"`
	Event     string `json:"event"`
}

type WalkEventHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewWalkEventHandler(service service.BookingService, log *logger.Logger) *WalkEventHandler {
	return &WalkEventHandler{
		service: service,
		log:     log,
	}
}

// Handle applies one walk event. Malformed payloads, unknown bookings and
// transitions the lifecycle forbids go to the dead letter topic; storage
// failures are retried. A redelivered event for a booking already in the
// target state is acknowledged.
func (h *WalkEventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event WalkEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("invalid walk event payload", err)
	}
	if event.BookingID == "" {
		return kafka.NewPermanentError("walk event without booking_id", nil)
	}

	if correlationID := msg.GetCorrelationID(); correlationID != "" {
		ctx = middleware.WithRequestID(ctx, correlationID)
	}

	var (
		apply  func(context.Context, string) (*model.Booking, error)
		target model.BookingStatus
	)
	switch event.Event {
	case EventWalkStarted:
		apply, target = h.service.StartWalk, model.BookingInProgress
	case EventWalkFinished:
		apply, target = h.service.FinishWalk, model.BookingCompleted
	default:
		return kafka.NewPermanentError(fmt.Sprintf("unknown walk event %q", event.Event), nil)
	}

	_, err := apply(ctx, event.BookingID)
	if err == nil {
		h.log.Info("Walk event applied", "booking_id", event.BookingID, "event", event.Event)
		return nil
	}

	switch {
	case apperrors.HasCode(err, apperrors.CodeInvalidTransition):
		if h.alreadyApplied(ctx, event.BookingID, target) {
			h.log.Info("Duplicate walk event ignored", "booking_id", event.BookingID, "event", event.Event)
			return nil
		}
		return kafka.NewPermanentError("walk event not allowed in current state", err)
	case apperrors.HasCode(err, apperrors.CodeNotFound),
		apperrors.HasCode(err, apperrors.CodeInvalidInput):
		return kafka.NewPermanentError("walk event for unknown booking", err)
	default:
		return kafka.NewTransientError("failed to apply walk event", err)
	}
}

func (h *WalkEventHandler) alreadyApplied(ctx context.Context, id string, target model.BookingStatus) bool {
	booking, err := h.service.GetByID(ctx, id)
	if err != nil {
		return false
	}
	return booking.Status == target
}
