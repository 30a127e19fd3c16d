package model

import (
	"time"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

const (
	CancelReasonOwnerRequest  = "owner_request"
	CancelReasonPaymentFailed = "payment_failed"
	CancelReasonPaymentError  = "payment_error"
)

// bookingTransitions is the complete lifecycle graph. Anything not listed is rejected.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingCancelled},
	BookingConfirmed:  {BookingInProgress, BookingCancelled},
	BookingInProgress: {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return allowed(bookingTransitions, s, next)
}

type Booking struct {
	ID                 string        `json:"id" bson:"_id" validate:"required"`
	OwnerID            string        `json:"owner_id" bson:"owner_id" validate:"required,max=64"`
	WalkerID           string        `json:"walker_id" bson:"walker_id" validate:"required,max=64"`
	DogIDs             []string      `json:"dog_ids" bson:"dog_ids" validate:"required,min=1,max=10,dive,required"`
	ScheduledAt        time.Time     `json:"scheduled_at" bson:"scheduled_at" validate:"required"`
	DurationMinutes    int           `json:"duration_minutes" bson:"duration_minutes" validate:"min=15,max=240"`
	Notes              string        `json:"notes,omitempty" bson:"notes,omitempty" validate:"max=500"`
	PaymentID          string        `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	Status             BookingStatus `json:"status" bson:"status" validate:"required,oneof=pending confirmed in_progress completed cancelled"`
	CancellationReason string        `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	Version            int64         `json:"version" bson:"version"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" bson:"updated_at"`
}

// TransitionTo moves the booking along the lifecycle graph.
func (b *Booking) TransitionTo(next BookingStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "booking", From: string(b.Status), To: string(next)}
	}
	b.Status = next
	return nil
}

// CreateBookingRequest is what a client submits; the booking and its payment are derived from it.
type CreateBookingRequest struct {
	OwnerID         string    `json:"owner_id"`
	WalkerID        string    `json:"walker_id"`
	DogIDs          []string  `json:"dog_ids"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency,omitempty"`
	PaymentSource   string    `json:"payment_source"`
}
