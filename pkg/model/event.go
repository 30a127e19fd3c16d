package model

import "time"

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingStarted   = "booking.started"
	EventBookingCompleted = "booking.completed"
	EventPaymentRefunded  = "payment.refunded"
)

// Event is the payload handed to the notification port.
type Event struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id,omitempty"`
	PaymentID  string    `json:"payment_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *Booking) Event {
	return Event{
		Type:       eventType,
		BookingID:  b.ID,
		PaymentID:  b.PaymentID,
		Status:     string(b.Status),
		Reason:     b.CancellationReason,
		OccurredAt: time.Now().UTC(),
	}
}

func NewPaymentEvent(eventType string, p *Payment) Event {
	return Event{
		Type:       eventType,
		BookingID:  p.BookingID,
		PaymentID:  p.ID,
		Status:     string(p.Status),
		OccurredAt: time.Now().UTC(),
	}
}
