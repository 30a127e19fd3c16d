package model

import (
	"errors"
	"testing"
)

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	all := []BookingStatus{BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled}
	legal := map[BookingStatus]map[BookingStatus]bool{
		BookingPending:    {BookingConfirmed: true, BookingCancelled: true},
		BookingConfirmed:  {BookingInProgress: true, BookingCancelled: true},
		BookingInProgress: {BookingCompleted: true, BookingCancelled: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestBookingStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status BookingStatus
		want   bool
	}{
		{BookingPending, false},
		{BookingConfirmed, false},
		{BookingInProgress, false},
		{BookingCompleted, true},
		{BookingCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBooking_TransitionTo(t *testing.T) {
	b := &Booking{ID: "b-1", Status: BookingPending}

	if err := b.TransitionTo(BookingConfirmed); err != nil {
		t.Fatalf("pending -> confirmed: unexpected error %v", err)
	}
	if b.Status != BookingConfirmed {
		t.Fatalf("expected confirmed, got %s", b.Status)
	}

	err := b.TransitionTo(BookingCompleted)
	var terr *TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("confirmed -> completed should fail with TransitionError, got %v", err)
	}
	if terr.From != "confirmed" || terr.To != "completed" {
		t.Errorf("unexpected transition error %+v", terr)
	}
	if b.Status != BookingConfirmed {
		t.Errorf("status must not change on rejected transition, got %s", b.Status)
	}
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	all := []PaymentStatus{PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentRefunded}
	legal := map[PaymentStatus]map[PaymentStatus]bool{
		PaymentPending:    {PaymentProcessing: true, PaymentFailed: true},
		PaymentProcessing: {PaymentCompleted: true, PaymentFailed: true},
		PaymentCompleted:  {PaymentRefunded: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestPayment_RefundOnlyFromCompleted(t *testing.T) {
	for _, status := range []PaymentStatus{PaymentPending, PaymentProcessing, PaymentFailed, PaymentRefunded} {
		p := &Payment{ID: "p-1", Status: status}
		if err := p.TransitionTo(PaymentRefunded); err == nil {
			t.Errorf("refund from %s should be rejected", status)
		}
	}

	p := &Payment{ID: "p-1", Status: PaymentCompleted}
	if err := p.TransitionTo(PaymentRefunded); err != nil {
		t.Errorf("refund from completed should be allowed, got %v", err)
	}
}
