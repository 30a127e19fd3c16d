package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bookinghandler "pawwalk/internal/bookings/handler"
	bookingrepository "pawwalk/internal/bookings/repository"
	bookingservice "pawwalk/internal/bookings/service"
	bookingvalidator "pawwalk/internal/bookings/validator"
	"pawwalk/internal/health"
	sqlitemigrate "pawwalk/internal/migrations/sqlite"
	"pawwalk/internal/notifications"
	"pawwalk/internal/payments/gateway"
	paymenthandler "pawwalk/internal/payments/handler"
	paymentrepository "pawwalk/internal/payments/repository"
	paymentservice "pawwalk/internal/payments/service"
	paymentvalidator "pawwalk/internal/payments/validator"
	"pawwalk/pkg/app"
	"pawwalk/pkg/client"
	"pawwalk/pkg/config"
	"pawwalk/pkg/lock"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
)

type clients struct {
	bookings *client.BookingClient
	payments *client.PaymentClient
}

// newServer runs the full HTTP stack over in-memory SQLite and the sandbox gateway.
func newServer(t *testing.T) clients {
	t.Helper()

	db, err := client.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlitemigrate.RunMigration(context.Background(), db, logger.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	c := client.NewClient()
	c.SQLite = db
	cfg := &config.Config{
		Port:                       "0",
		DefaultCurrency:            "usd",
		DefaultWalkDurationMinutes: 30,
		GatewayTimeout:             time.Second,
		NotifyTimeout:              time.Second,
		RequestTimeout:             5 * time.Second,
		IdempotencyTTL:             time.Minute,
		MaxRequestSize:             1 << 20,
		Log:                        logger.Discard(),
		Client:                     c,
	}

	locker := lock.NewKeyedMutex()
	notifier := notifications.NewLogNotifier(cfg.Log)
	payValidator := paymentvalidator.NewPaymentValidator(cfg.Log, 0)
	payments := paymentservice.NewPaymentService(
		paymentrepository.NewSQLitePaymentRepository(db),
		gateway.NewSandbox(),
		locker,
		payValidator,
		notifier,
		cfg,
	)
	bookings := bookingservice.NewBookingService(
		bookingrepository.NewSQLiteBookingRepository(db),
		payments,
		locker,
		bookingvalidator.NewBookingValidator(cfg.Log, nil),
		payValidator,
		notifier,
		cfg,
	)

	application := app.NewApplication(cfg)
	application.SetApp(
		health.NewHealthHandler(c, cfg.Log),
		bookinghandler.NewBookingHandler(bookings, cfg.Log),
		paymenthandler.NewPaymentHandler(payments, "", cfg.Log),
	)
	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)

	hc := client.NewHttpClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hc.WaitForHealthy(ctx, 5*time.Second); err != nil {
		t.Fatalf("server not healthy: %v", err)
	}

	return clients{
		bookings: client.NewBookingClient(server.URL),
		payments: client.NewPaymentClient(server.URL),
	}
}

func bookingRequest(amount int64) *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		OwnerID:       "owner-1",
		WalkerID:      "walker-1",
		DogIDs:        []string{"dog-1"},
		ScheduledAt:   time.Now().Add(24 * time.Hour).UTC(),
		Amount:        amount,
		PaymentSource: "tokn_test",
	}
}

// ────────────────────────────────────────────────────────────────
// Booking lifecycle
// ────────────────────────────────────────────────────────────────

func TestBookingClient_WalkLifecycle(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	booking, err := c.bookings.Create(ctx, bookingRequest(2500), "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if booking.Status != model.BookingConfirmed {
		t.Fatalf("status = %s, want confirmed", booking.Status)
	}

	started, err := c.bookings.Start(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if started.Status != model.BookingInProgress {
		t.Errorf("status = %s, want in_progress", started.Status)
	}

	finished, err := c.bookings.Finish(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if finished.Status != model.BookingCompleted {
		t.Errorf("status = %s, want completed", finished.Status)
	}

	owned, err := c.bookings.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(owned) != 1 || owned[0].ID != booking.ID {
		t.Errorf("ListByOwner() = %v, want [%s]", owned, booking.ID)
	}
}

func TestBookingClient_CancelRefundsPayment(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	booking, err := c.bookings.Create(ctx, bookingRequest(4000), "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cancelled, err := c.bookings.Cancel(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != model.BookingCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	payment, err := c.payments.GetByID(ctx, booking.PaymentID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if payment.Status != model.PaymentRefunded || payment.RefundedAmount != 4000 {
		t.Errorf("payment = %s/%d, want refunded/4000", payment.Status, payment.RefundedAmount)
	}
}

func TestBookingClient_DeclinedPaymentCancelsBooking(t *testing.T) {
	c := newServer(t)

	booking, err := c.bookings.Create(context.Background(), bookingRequest(2513), "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if booking.Status != model.BookingCancelled {
		t.Errorf("status = %s, want cancelled", booking.Status)
	}
	if booking.CancellationReason != string(model.CancelReasonPaymentFailed) {
		t.Errorf("reason = %q, want payment_failed", booking.CancellationReason)
	}
}

func TestBookingClient_IdempotentCreate(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()
	req := bookingRequest(2500)

	first, err := c.bookings.Create(ctx, req, "retry-1")
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	second, err := c.bookings.Create(ctx, req, "retry-1")
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("replayed booking id = %s, want %s", second.ID, first.ID)
	}
}

// ────────────────────────────────────────────────────────────────
// Errors
// ────────────────────────────────────────────────────────────────

func TestClients_ReturnAPIErrors(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	_, err := c.bookings.GetByID(ctx, "missing")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("GetByID() error = %v, want 404 APIError", err)
	}

	booking, err := c.bookings.Create(ctx, bookingRequest(2500), "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, err = c.bookings.Finish(ctx, booking.ID)
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Errorf("Finish() on confirmed booking error = %v, want 409 APIError", err)
	}

	_, err = c.payments.Refund(ctx, booking.PaymentID, 999999)
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Errorf("Refund() above amount error = %v, want 409 APIError", err)
	}

	payment, err := c.payments.Reconcile(ctx, booking.PaymentID)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if payment.Status != model.PaymentCompleted {
		t.Errorf("Reconcile() status = %s, want completed", payment.Status)
	}
}
