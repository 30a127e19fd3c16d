// Package reconcile converges payments and bookings that an interrupted or
// ambiguous flow left in an intermediate state.
package reconcile

import (
	"context"
	"time"

	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
)

type PaymentStore interface {
	FindStale(ctx context.Context, status model.PaymentStatus, before time.Time, limit int) ([]*model.Payment, error)
}

type BookingStore interface {
	FindStale(ctx context.Context, status model.BookingStatus, before time.Time, limit int) ([]*model.Booking, error)
	FindUpdatedSince(ctx context.Context, status model.BookingStatus, since time.Time, afterID string, limit int) ([]*model.Booking, error)
}

type PaymentService interface {
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	Reconcile(ctx context.Context, id string) (*model.Payment, error)
	Refund(ctx context.Context, id string, amount int64) (*model.Payment, error)
}

type BookingService interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ResolvePending(ctx context.Context, id string) (*model.Booking, error)
}

type Config struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
	// RefundWindow bounds how far back cancelled bookings are swept for
	// captured charges. Zero disables the sweep.
	RefundWindow time.Duration
}

// Summary counts what one pass did.
type Summary struct {
	PaymentsChecked  int
	PaymentsSettled  int
	Refunded         int
	BookingsChecked  int
	BookingsResolved int
	CancelledChecked int
	Errors           int
}

type Worker struct {
	paymentStore PaymentStore
	bookingStore BookingStore
	payments     PaymentService
	bookings     BookingService
	cfg          Config
	log          *logger.Logger
	now          func() time.Time
}

func NewWorker(
	paymentStore PaymentStore,
	bookingStore BookingStore,
	payments PaymentService,
	bookings BookingService,
	cfg Config,
	log *logger.Logger,
) *Worker {
	return &Worker{
		paymentStore: paymentStore,
		bookingStore: bookingStore,
		payments:     payments,
		bookings:     bookings,
		cfg:          cfg,
		log:          log.Component("reconciler"),
		now:          time.Now,
	}
}

// Run makes a pass every Interval until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.log.Info("Reconciler started",
		"interval", w.cfg.Interval,
		"stale_after", w.cfg.StaleAfter,
		"batch_size", w.cfg.BatchSize,
		"refund_window", w.cfg.RefundWindow,
	)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Reconciler stopped")
			return
		case <-ticker.C:
			summary := w.RunOnce(ctx)
			if summary.PaymentsChecked+summary.BookingsChecked+summary.Refunded > 0 {
				w.log.Info("Reconcile pass finished",
					"payments_checked", summary.PaymentsChecked,
					"payments_settled", summary.PaymentsSettled,
					"refunded", summary.Refunded,
					"bookings_checked", summary.BookingsChecked,
					"bookings_resolved", summary.BookingsResolved,
					"cancelled_checked", summary.CancelledChecked,
					"errors", summary.Errors,
				)
			}
		}
	}
}

// RunOnce settles stale payments first so the bookings that depend on them can
// be resolved in the same pass.
func (w *Worker) RunOnce(ctx context.Context) Summary {
	var summary Summary
	cutoff := w.now().Add(-w.cfg.StaleAfter)

	w.reconcilePayments(ctx, cutoff, &summary)
	w.refundCancelled(ctx, &summary)
	w.resolveBookings(ctx, cutoff, &summary)
	return summary
}

func (w *Worker) reconcilePayments(ctx context.Context, cutoff time.Time, summary *Summary) {
	stale, err := w.paymentStore.FindStale(ctx, model.PaymentProcessing, cutoff, w.cfg.BatchSize)
	if err != nil {
		w.log.Error("Failed to list stale payments", "error", err)
		summary.Errors++
		return
	}

	for _, p := range stale {
		if ctx.Err() != nil {
			return
		}
		summary.PaymentsChecked++

		payment, err := w.payments.Reconcile(ctx, p.ID)
		if err != nil {
			w.log.Warn("Payment not reconciled", "payment_id", p.ID, "error", err)
			summary.Errors++
			continue
		}
		if payment.Status == model.PaymentProcessing {
			continue
		}
		summary.PaymentsSettled++

		if payment.Status == model.PaymentCompleted {
			w.refundIfCancelled(ctx, payment, summary)
		}
	}
}

// refundIfCancelled returns money captured for a booking that was already
// cancelled because the charge looked failed at the time.
func (w *Worker) refundIfCancelled(ctx context.Context, payment *model.Payment, summary *Summary) {
	booking, err := w.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		w.log.Warn("Booking for settled payment not loaded",
			"payment_id", payment.ID,
			"booking_id", payment.BookingID,
			"error", err,
		)
		summary.Errors++
		return
	}
	if booking.Status != model.BookingCancelled {
		return
	}

	if _, err := w.payments.Refund(ctx, payment.ID, payment.Amount); err != nil {
		w.log.Error("Refund for cancelled booking failed",
			"payment_id", payment.ID,
			"booking_id", booking.ID,
			"error", err,
		)
		summary.Errors++
		return
	}
	summary.Refunded++
	w.log.Info("Refunded payment captured after cancellation",
		"payment_id", payment.ID,
		"booking_id", booking.ID,
		"amount", payment.Amount,
	)
}

// refundCancelled sweeps bookings cancelled within RefundWindow and refunds any
// payment still captured for them. A refund that failed earlier is retried on
// every pass until the booking ages out of the window.
func (w *Worker) refundCancelled(ctx context.Context, summary *Summary) {
	if w.cfg.RefundWindow <= 0 {
		return
	}
	since := w.now().Add(-w.cfg.RefundWindow)
	afterID := ""

	for ctx.Err() == nil {
		page, err := w.bookingStore.FindUpdatedSince(ctx, model.BookingCancelled, since, afterID, w.cfg.BatchSize)
		if err != nil {
			w.log.Error("Failed to list cancelled bookings", "error", err)
			summary.Errors++
			return
		}

		for _, b := range page {
			if ctx.Err() != nil {
				return
			}
			summary.CancelledChecked++
			if b.PaymentID == "" {
				continue
			}

			payment, err := w.payments.GetByID(ctx, b.PaymentID)
			if err != nil {
				w.log.Warn("Payment for cancelled booking not loaded",
					"booking_id", b.ID,
					"payment_id", b.PaymentID,
					"error", err,
				)
				summary.Errors++
				continue
			}
			if payment.Status != model.PaymentCompleted {
				continue
			}

			if _, err := w.payments.Refund(ctx, payment.ID, payment.Amount); err != nil {
				w.log.Error("Refund for cancelled booking failed",
					"payment_id", payment.ID,
					"booking_id", b.ID,
					"error", err,
				)
				summary.Errors++
				continue
			}
			summary.Refunded++
			w.log.Info("Refunded payment captured for cancelled booking",
				"payment_id", payment.ID,
				"booking_id", b.ID,
				"amount", payment.Amount,
			)
		}

		if len(page) == 0 || len(page) < w.cfg.BatchSize {
			return
		}
		last := page[len(page)-1]
		since, afterID = last.UpdatedAt, last.ID
	}
}

func (w *Worker) resolveBookings(ctx context.Context, cutoff time.Time, summary *Summary) {
	stale, err := w.bookingStore.FindStale(ctx, model.BookingPending, cutoff, w.cfg.BatchSize)
	if err != nil {
		w.log.Error("Failed to list stale bookings", "error", err)
		summary.Errors++
		return
	}

	for _, b := range stale {
		if ctx.Err() != nil {
			return
		}
		summary.BookingsChecked++

		booking, err := w.bookings.ResolvePending(ctx, b.ID)
		if err != nil {
			w.log.Warn("Booking not resolved", "booking_id", b.ID, "error", err)
			summary.Errors++
			continue
		}
		if booking.Status != model.BookingPending {
			summary.BookingsResolved++
		}
	}
}
