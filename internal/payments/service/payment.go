package service

import (
	"context"
	"errors"
	"fmt"

	"pawwalk/internal/notifications"
	paymentserrors "pawwalk/internal/payments/errors"
	"pawwalk/internal/payments/gateway"
	"pawwalk/internal/payments/repository"
	"pawwalk/internal/payments/validator"
	"pawwalk/pkg/config"
	apperrors "pawwalk/pkg/errors"
	"pawwalk/pkg/lock"
	"pawwalk/pkg/model"
)

// PaymentService drives payments through the gateway to a persisted terminal state.
// Every transition is written before the call that made it returns.
type PaymentService interface {
	// Process submits payment exactly once. A definitive decline is not an
	// error: the returned payment is Failed. A GatewayError means the outcome
	// is unknown and the payment was left in Processing for reconciliation.
	Process(ctx context.Context, payment *model.Payment) (*model.Payment, error)
	Refund(ctx context.Context, id string, amount int64) (*model.Payment, error)
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	// Reconcile asks the gateway about a payment stuck in Processing and
	// records the answer. Payments in any other state are returned unchanged.
	Reconcile(ctx context.Context, id string) (*model.Payment, error)
}

type paymentService struct {
	repo      repository.PaymentRepository
	gateway   gateway.Gateway
	locker    lock.Locker
	validator *validator.PaymentValidator
	notifier  notifications.Notifier
	cfg       *config.Config
}

func NewPaymentService(
	repo repository.PaymentRepository,
	gw gateway.Gateway,
	locker lock.Locker,
	validator *validator.PaymentValidator,
	notifier notifications.Notifier,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		repo:      repo,
		gateway:   gw,
		locker:    locker,
		validator: validator,
		notifier:  notifier,
		cfg:       cfg,
	}
}

func (s *paymentService) Process(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	if err := s.validator.Validate(payment); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if payment.Status == model.PaymentPending {
		if err := s.transition(payment, model.PaymentProcessing); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, payment); err != nil {
		return nil, err
	}

	// A submitted charge must have its outcome recorded.
	ctx = context.WithoutCancel(ctx)

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	result, err := s.gateway.Submit(gwCtx, payment)
	cancel()
	if err != nil {
		s.cfg.Log.Warn("Gateway outcome unknown, payment left processing",
			"payment_id", payment.ID,
			"booking_id", payment.BookingID,
			"error", err,
		)
		return payment, apperrors.Gateway("payment gateway did not return an outcome", err)
	}

	return s.applyResult(ctx, payment, result)
}

// applyResult records a gateway answer for a processing payment. Pending
// answers keep the payment in Processing but remember the reference.
func (s *paymentService) applyResult(ctx context.Context, payment *model.Payment, result gateway.Result) (*model.Payment, error) {
	if result.Reference != "" {
		payment.GatewayRef = result.Reference
	}

	switch {
	case result.Success:
		if err := s.transition(payment, model.PaymentCompleted); err != nil {
			return nil, err
		}
	case result.Pending:
		if err := s.save(ctx, payment); err != nil {
			return nil, err
		}
		return payment, apperrors.Gateway("payment is still pending at the gateway", nil)
	default:
		payment.FailureCode = result.FailureCode
		payment.FailureMessage = result.FailureMessage
		if err := s.transition(payment, model.PaymentFailed); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, payment); err != nil {
		s.cfg.Log.Error("Gateway outcome not persisted",
			"payment_id", payment.ID,
			"gateway_ref", payment.GatewayRef,
			"status", payment.Status,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Payment processed",
		"payment_id", payment.ID,
		"booking_id", payment.BookingID,
		"status", payment.Status,
		"gateway_ref", payment.GatewayRef,
	)
	return payment, nil
}

func (s *paymentService) Refund(ctx context.Context, id string, amount int64) (*model.Payment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Payment ID cannot be empty")
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status != model.PaymentCompleted {
		return nil, apperrors.InvalidRefund("only completed payments can be refunded", map[string]any{
			"payment_id": id,
			"status":     payment.Status,
		})
	}
	if amount <= 0 || amount > payment.Amount {
		return nil, apperrors.InvalidRefund(
			fmt.Sprintf("refund amount must be between 1 and %d", payment.Amount),
			map[string]any{"payment_id": id, "amount": amount},
		)
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	result, err := s.gateway.Refund(gwCtx, payment.GatewayRef, amount)
	cancel()
	if err != nil {
		return nil, apperrors.Gateway("refund was not confirmed by the gateway", err)
	}
	if !result.Success {
		return nil, apperrors.Gateway("refund declined by the gateway", nil).WithDetails(map[string]any{
			"failure_code":    result.FailureCode,
			"failure_message": result.FailureMessage,
		})
	}

	payment.RefundedAmount = amount
	if err := s.transition(payment, model.PaymentRefunded); err != nil {
		return nil, err
	}
	if err := s.save(ctx, payment); err != nil {
		s.cfg.Log.Error("Refund confirmed by gateway but not persisted",
			"payment_id", id,
			"amount", amount,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Payment refunded", "payment_id", id, "amount", amount)
	notifications.Dispatch(ctx, s.notifier, s.cfg.NotifyTimeout, s.cfg.Log,
		model.NewPaymentEvent(model.EventPaymentRefunded, payment), payment.PayerID)
	return payment, nil
}

func (s *paymentService) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Payment ID cannot be empty")
	}
	return s.find(ctx, id)
}

func (s *paymentService) Reconcile(ctx context.Context, id string) (*model.Payment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Payment ID cannot be empty")
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentProcessing {
		return payment, nil
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	result, err := s.gateway.Lookup(gwCtx, payment.ID, payment.GatewayRef)
	cancel()
	if errors.Is(err, gateway.ErrUnknownCharge) {
		result = gateway.Result{
			FailureCode:    "not_submitted",
			FailureMessage: "the gateway has no charge for this payment",
		}
		err = nil
	}
	if err != nil {
		return nil, apperrors.Gateway("payment lookup failed", err)
	}

	s.cfg.Log.Info("Reconciling payment",
		"payment_id", id,
		"success", result.Success,
		"pending", result.Pending,
	)
	return s.applyResult(ctx, payment, result)
}

func (s *paymentService) lock(ctx context.Context, id string) (lock.Unlock, error) {
	unlock, err := s.locker.Lock(ctx, lock.PaymentKey(id))
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Timeout("timed out waiting for payment " + id)
		}
		return nil, apperrors.Persistence("failed to lock payment", err)
	}
	return unlock, nil
}

func (s *paymentService) find(ctx context.Context, id string) (*model.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Payment", id)
		}
		return nil, apperrors.Persistence("failed to load payment", err)
	}
	return payment, nil
}

func (s *paymentService) save(ctx context.Context, payment *model.Payment) error {
	if err := s.repo.Save(ctx, payment); err != nil {
		if errors.Is(err, paymentserrors.ErrVersionConflict) {
			return apperrors.Persistence("payment was modified concurrently", err)
		}
		return apperrors.Persistence("failed to save payment", err)
	}
	return nil
}

func (s *paymentService) transition(payment *model.Payment, next model.PaymentStatus) error {
	from := payment.Status
	if err := payment.TransitionTo(next); err != nil {
		return apperrors.InvalidTransition("payment", string(from), string(next))
	}
	s.cfg.Log.Debug("Payment transition", "payment_id", payment.ID, "from", from, "to", next)
	return nil
}
