package gateway

import (
	"context"
	"errors"
	"sync"

	"pawwalk/pkg/model"

	"github.com/google/uuid"
)

var ErrSandboxUnavailable = errors.New("sandbox gateway unavailable")

// Sandbox is an in-process gateway with deterministic outcomes keyed on the
// amount: amounts ending in 13 are declined, amounts ending in 99 fail with a
// transport error after the charge was recorded.
type Sandbox struct {
	mu      sync.Mutex
	charges map[string]sandboxCharge
	byRef   map[string]string
}

type sandboxCharge struct {
	ref      string
	amount   int64
	refunded int64
	result   Result
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		charges: make(map[string]sandboxCharge),
		byRef:   make(map[string]string),
	}
}

func (s *Sandbox) Submit(ctx context.Context, payment *model.Payment) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.charges[payment.ID]; ok {
		return existing.result, nil
	}

	ref := "chrg_sandbox_" + uuid.NewString()
	result := Result{Success: true, Reference: ref}
	switch payment.Amount % 100 {
	case 13:
		result = Result{
			Reference:      ref,
			FailureCode:    "insufficient_fund",
			FailureMessage: "insufficient funds in the account",
		}
	}

	s.charges[payment.ID] = sandboxCharge{ref: ref, amount: payment.Amount, result: result}
	s.byRef[ref] = payment.ID

	if payment.Amount%100 == 99 {
		return Result{}, ErrSandboxUnavailable
	}
	return result, nil
}

func (s *Sandbox) Refund(ctx context.Context, reference string, amount int64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	paymentID, ok := s.byRef[reference]
	if !ok {
		return Result{FailureCode: "not_found", FailureMessage: "charge not found"}, nil
	}
	charge := s.charges[paymentID]
	if !charge.result.Success {
		return Result{FailureCode: "failed_refund", FailureMessage: "charge was not captured"}, nil
	}
	if charge.refunded+amount > charge.amount {
		return Result{FailureCode: "invalid_amount", FailureMessage: "refund exceeds charge amount"}, nil
	}

	charge.refunded += amount
	s.charges[paymentID] = charge
	return Result{Success: true, Reference: "rfnd_sandbox_" + uuid.NewString()}, nil
}

func (s *Sandbox) Lookup(ctx context.Context, paymentID, reference string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if paymentID == "" {
		paymentID = s.byRef[reference]
	}
	charge, ok := s.charges[paymentID]
	if !ok {
		return Result{}, ErrUnknownCharge
	}
	return charge.result, nil
}
