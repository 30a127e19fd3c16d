package service

import (
	"context"
	"errors"
	"testing"
	"time"

	paymentserrors "pawwalk/internal/payments/errors"
	"pawwalk/internal/payments/gateway"
	"pawwalk/internal/payments/validator"
	"pawwalk/pkg/config"
	apperrors "pawwalk/pkg/errors"
	"pawwalk/pkg/lock"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

// mockPaymentRepository keeps payments in memory unless a func overrides it.
type mockPaymentRepository struct {
	payments map[string]model.Payment
	saved    []model.Payment

	saveFunc func(ctx context.Context, payment *model.Payment) error
}

func newMockRepository() *mockPaymentRepository {
	return &mockPaymentRepository{payments: make(map[string]model.Payment)}
}

func (m *mockPaymentRepository) Save(ctx context.Context, payment *model.Payment) error {
	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, payment); err != nil {
			return err
		}
	}
	if stored, ok := m.payments[payment.ID]; ok && stored.Version != payment.Version {
		return paymentserrors.ErrVersionConflict
	}
	payment.Version++
	m.payments[payment.ID] = *payment
	m.saved = append(m.saved, *payment)
	return nil
}

func (m *mockPaymentRepository) FindByID(_ context.Context, id string) (*model.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, paymentserrors.ErrNotFound
	}
	return &p, nil
}

func (m *mockPaymentRepository) FindStale(context.Context, model.PaymentStatus, time.Time, int) ([]*model.Payment, error) {
	return nil, nil
}

func (m *mockPaymentRepository) statuses() []model.PaymentStatus {
	out := make([]model.PaymentStatus, 0, len(m.saved))
	for _, p := range m.saved {
		out = append(out, p.Status)
	}
	return out
}

type mockGateway struct {
	submitFunc func(ctx context.Context, payment *model.Payment) (gateway.Result, error)
	refundFunc func(ctx context.Context, ref string, amount int64) (gateway.Result, error)
	lookupFunc func(ctx context.Context, paymentID, ref string) (gateway.Result, error)

	submits int
	refunds int
}

func (m *mockGateway) Submit(ctx context.Context, payment *model.Payment) (gateway.Result, error) {
	m.submits++
	if m.submitFunc != nil {
		return m.submitFunc(ctx, payment)
	}
	return gateway.Result{Success: true, Reference: "chrg_1"}, nil
}

func (m *mockGateway) Refund(ctx context.Context, ref string, amount int64) (gateway.Result, error) {
	m.refunds++
	if m.refundFunc != nil {
		return m.refundFunc(ctx, ref, amount)
	}
	return gateway.Result{Success: true, Reference: "rfnd_1"}, nil
}

func (m *mockGateway) Lookup(ctx context.Context, paymentID, ref string) (gateway.Result, error) {
	if m.lookupFunc != nil {
		return m.lookupFunc(ctx, paymentID, ref)
	}
	return gateway.Result{}, gateway.ErrUnknownCharge
}

type mockNotifier struct {
	events []model.Event
}

func (m *mockNotifier) Notify(_ context.Context, _ string, event model.Event) error {
	m.events = append(m.events, event)
	return nil
}

type fixture struct {
	repo     *mockPaymentRepository
	gateway  *mockGateway
	notifier *mockNotifier
	service  PaymentService
}

func newFixture() *fixture {
	cfg := &config.Config{
		GatewayTimeout: time.Second,
		NotifyTimeout:  time.Second,
		Log:            logger.Discard(),
	}
	f := &fixture{
		repo:     newMockRepository(),
		gateway:  &mockGateway{},
		notifier: &mockNotifier{},
	}
	f.service = NewPaymentService(
		f.repo,
		f.gateway,
		lock.NewKeyedMutex(),
		validator.NewPaymentValidator(cfg.Log, 0),
		f.notifier,
		cfg,
	)
	return f
}

func newPayment() *model.Payment {
	return &model.Payment{
		ID:        "p-1",
		BookingID: "b-1",
		Amount:    2500,
		Currency:  "USD",
		PayerID:   "owner-1",
		PayeeID:   "walker-1",
		Status:    model.PaymentPending,
	}
}

func seedCompleted(t *testing.T, f *fixture) *model.Payment {
	t.Helper()
	p, err := f.service.Process(context.Background(), newPayment())
	if err != nil || p.Status != model.PaymentCompleted {
		t.Fatalf("seed: payment = %+v, err = %v", p, err)
	}
	return p
}

// ────────────────────────────────────────────────
// Process
// ────────────────────────────────────────────────

func TestProcess_RecordsOutcomeAfterCallerCancels(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.gateway.submitFunc = func(context.Context, *model.Payment) (gateway.Result, error) {
		cancel()
		return gateway.Result{Success: true, Reference: "chrg_1"}, nil
	}
	f.repo.saveFunc = func(ctx context.Context, _ *model.Payment) error {
		return ctx.Err()
	}

	p, err := f.service.Process(ctx, newPayment())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if p.Status != model.PaymentCompleted {
		t.Errorf("status = %s, want completed", p.Status)
	}
	if stored := f.repo.payments["p-1"]; stored.Status != model.PaymentCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
}

func TestProcess_Success(t *testing.T) {
	f := newFixture()

	p, err := f.service.Process(context.Background(), newPayment())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if p.Status != model.PaymentCompleted || p.GatewayRef != "chrg_1" {
		t.Errorf("payment = %+v", p)
	}

	want := []model.PaymentStatus{model.PaymentProcessing, model.PaymentCompleted}
	if got := f.repo.statuses(); !equalStatuses(got, want) {
		t.Errorf("persisted statuses = %v, want %v", got, want)
	}
	if f.gateway.submits != 1 {
		t.Errorf("gateway submits = %d, want 1", f.gateway.submits)
	}
}

func TestProcess_DeclineIsRecordedNotRetried(t *testing.T) {
	f := newFixture()
	f.gateway.submitFunc = func(context.Context, *model.Payment) (gateway.Result, error) {
		return gateway.Result{Reference: "chrg_1", FailureCode: "insufficient_fund"}, nil
	}

	p, err := f.service.Process(context.Background(), newPayment())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if p.Status != model.PaymentFailed || p.FailureCode != "insufficient_fund" {
		t.Errorf("payment = %+v", p)
	}
	if f.gateway.submits != 1 {
		t.Errorf("gateway submits = %d, want 1", f.gateway.submits)
	}
	if stored := f.repo.payments["p-1"]; stored.Status != model.PaymentFailed {
		t.Errorf("stored status = %s, want failed", stored.Status)
	}
}

func TestProcess_GatewayErrorLeavesProcessing(t *testing.T) {
	f := newFixture()
	f.gateway.submitFunc = func(ctx context.Context, _ *model.Payment) (gateway.Result, error) {
		return gateway.Result{}, errors.New("connection reset")
	}

	_, err := f.service.Process(context.Background(), newPayment())
	if !apperrors.HasCode(err, apperrors.CodeGateway) {
		t.Fatalf("expected GATEWAY_ERROR, got %v", err)
	}
	if stored := f.repo.payments["p-1"]; stored.Status != model.PaymentProcessing {
		t.Errorf("stored status = %s, want processing", stored.Status)
	}
}

func TestProcess_GatewayCallIsTimeBounded(t *testing.T) {
	f := newFixture()
	f.gateway.submitFunc = func(ctx context.Context, _ *model.Payment) (gateway.Result, error) {
		deadline, ok := ctx.Deadline()
		if !ok || time.Until(deadline) > time.Second {
			t.Errorf("gateway context not bounded by the configured timeout")
		}
		return gateway.Result{Success: true}, nil
	}

	if _, err := f.service.Process(context.Background(), newPayment()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
}

func TestProcess_InvalidPaymentTouchesNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *model.Payment)
	}{
		{name: "payer equals payee", mutate: func(p *model.Payment) { p.PayeeID = p.PayerID }},
		{name: "zero amount", mutate: func(p *model.Payment) { p.Amount = 0 }},
		{name: "negative amount", mutate: func(p *model.Payment) { p.Amount = -5 }},
		{name: "empty id", mutate: func(p *model.Payment) { p.ID = "" }},
		{name: "completed status", mutate: func(p *model.Payment) { p.Status = model.PaymentCompleted }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			p := newPayment()
			tt.mutate(p)

			_, err := f.service.Process(context.Background(), p)
			if !apperrors.HasCode(err, apperrors.CodeInvalidPayment) {
				t.Fatalf("expected INVALID_PAYMENT, got %v", err)
			}
			if len(f.repo.saved) != 0 || f.gateway.submits != 0 {
				t.Errorf("saves = %d, submits = %d, want none", len(f.repo.saved), f.gateway.submits)
			}
		})
	}
}

func TestProcess_PersistenceFailureStopsBeforeGateway(t *testing.T) {
	f := newFixture()
	f.repo.saveFunc = func(context.Context, *model.Payment) error { return errors.New("disk full") }

	_, err := f.service.Process(context.Background(), newPayment())
	if !apperrors.HasCode(err, apperrors.CodePersistence) {
		t.Fatalf("expected PERSISTENCE_ERROR, got %v", err)
	}
	if f.gateway.submits != 0 {
		t.Error("gateway must not be called when processing was not persisted")
	}
}

func TestProcess_CompletedNotPersistedStaysProcessing(t *testing.T) {
	f := newFixture()
	f.repo.saveFunc = func(_ context.Context, p *model.Payment) error {
		if p.Status == model.PaymentCompleted {
			return errors.New("write timeout")
		}
		return nil
	}

	_, err := f.service.Process(context.Background(), newPayment())
	if !apperrors.HasCode(err, apperrors.CodePersistence) {
		t.Fatalf("expected PERSISTENCE_ERROR, got %v", err)
	}
	if stored := f.repo.payments["p-1"]; stored.Status != model.PaymentProcessing {
		t.Errorf("stored status = %s, want processing", stored.Status)
	}
}

// ────────────────────────────────────────────────
// Refund
// ────────────────────────────────────────────────

func TestRefund_Completed(t *testing.T) {
	f := newFixture()
	seedCompleted(t, f)

	var gotRef string
	f.gateway.refundFunc = func(_ context.Context, ref string, amount int64) (gateway.Result, error) {
		gotRef = ref
		return gateway.Result{Success: true}, nil
	}

	p, err := f.service.Refund(context.Background(), "p-1", 1000)
	if err != nil {
		t.Fatalf("Refund() error = %v", err)
	}
	if p.Status != model.PaymentRefunded || p.RefundedAmount != 1000 {
		t.Errorf("payment = %+v", p)
	}
	if gotRef != "chrg_1" {
		t.Errorf("refund reference = %q, want chrg_1", gotRef)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].Type != model.EventPaymentRefunded {
		t.Errorf("events = %+v", f.notifier.events)
	}
}

func TestRefund_NeverSucceedsUnlessCompleted(t *testing.T) {
	statuses := []model.PaymentStatus{
		model.PaymentPending,
		model.PaymentProcessing,
		model.PaymentFailed,
		model.PaymentRefunded,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			p := newPayment()
			p.Status = status
			p.Version = 1
			f.repo.payments[p.ID] = *p

			_, err := f.service.Refund(context.Background(), p.ID, 100)
			if !apperrors.HasCode(err, apperrors.CodeInvalidRefund) {
				t.Fatalf("expected INVALID_REFUND, got %v", err)
			}
			if f.gateway.refunds != 0 {
				t.Error("gateway refund must not be called")
			}
		})
	}
}

func TestRefund_AmountBounds(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		wantErr bool
	}{
		{name: "zero", amount: 0, wantErr: true},
		{name: "exceeds original", amount: 2501, wantErr: true},
		{name: "full", amount: 2500},
		{name: "partial", amount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			seedCompleted(t, f)

			_, err := f.service.Refund(context.Background(), "p-1", tt.amount)
			if tt.wantErr != apperrors.HasCode(err, apperrors.CodeInvalidRefund) {
				t.Errorf("Refund(%d) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}
		})
	}
}

func TestRefund_GatewayDeclineKeepsCompleted(t *testing.T) {
	f := newFixture()
	seedCompleted(t, f)
	f.gateway.refundFunc = func(context.Context, string, int64) (gateway.Result, error) {
		return gateway.Result{FailureCode: "failed_refund"}, nil
	}

	_, err := f.service.Refund(context.Background(), "p-1", 100)
	if !apperrors.HasCode(err, apperrors.CodeGateway) {
		t.Fatalf("expected GATEWAY_ERROR, got %v", err)
	}
	if stored := f.repo.payments["p-1"]; stored.Status != model.PaymentCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
}

func TestRefund_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.service.Refund(context.Background(), "missing", 100)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Reconcile
// ────────────────────────────────────────────────

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		lookup     func(ctx context.Context, paymentID, ref string) (gateway.Result, error)
		wantStatus model.PaymentStatus
		wantCode   string
	}{
		{
			name: "gateway captured the charge",
			lookup: func(context.Context, string, string) (gateway.Result, error) {
				return gateway.Result{Success: true, Reference: "chrg_9"}, nil
			},
			wantStatus: model.PaymentCompleted,
		},
		{
			name: "gateway declined",
			lookup: func(context.Context, string, string) (gateway.Result, error) {
				return gateway.Result{FailureCode: "stolen_card"}, nil
			},
			wantStatus: model.PaymentFailed,
		},
		{
			name: "gateway never saw the charge",
			lookup: func(context.Context, string, string) (gateway.Result, error) {
				return gateway.Result{}, gateway.ErrUnknownCharge
			},
			wantStatus: model.PaymentFailed,
		},
		{
			name: "still pending",
			lookup: func(context.Context, string, string) (gateway.Result, error) {
				return gateway.Result{Pending: true}, nil
			},
			wantStatus: model.PaymentProcessing,
			wantCode:   apperrors.CodeGateway,
		},
		{
			name: "lookup failed",
			lookup: func(context.Context, string, string) (gateway.Result, error) {
				return gateway.Result{}, errors.New("timeout")
			},
			wantStatus: model.PaymentProcessing,
			wantCode:   apperrors.CodeGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			p := newPayment()
			p.Status = model.PaymentProcessing
			p.Version = 1
			f.repo.payments[p.ID] = *p
			f.gateway.lookupFunc = tt.lookup

			_, err := f.service.Reconcile(context.Background(), p.ID)
			if tt.wantCode == "" && err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if tt.wantCode != "" && !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if stored := f.repo.payments[p.ID]; stored.Status != tt.wantStatus {
				t.Errorf("stored status = %s, want %s", stored.Status, tt.wantStatus)
			}
		})
	}
}

func TestReconcile_IsNoOpOutsideProcessing(t *testing.T) {
	f := newFixture()
	seedCompleted(t, f)
	f.gateway.lookupFunc = func(context.Context, string, string) (gateway.Result, error) {
		t.Error("lookup must not be called for a completed payment")
		return gateway.Result{}, nil
	}
	saves := len(f.repo.saved)

	p, err := f.service.Reconcile(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if p.Status != model.PaymentCompleted || len(f.repo.saved) != saves {
		t.Errorf("reconcile changed a settled payment: %+v", p)
	}
}

func TestGetByID(t *testing.T) {
	f := newFixture()
	seedCompleted(t, f)

	if _, err := f.service.GetByID(context.Background(), ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if _, err := f.service.GetByID(context.Background(), "nope"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if p, err := f.service.GetByID(context.Background(), "p-1"); err != nil || p.ID != "p-1" {
		t.Errorf("GetByID() = %+v, %v", p, err)
	}
}

func equalStatuses(a, b []model.PaymentStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
