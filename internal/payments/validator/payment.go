package validator

import (
	"fmt"

	apperrors "pawwalk/pkg/errors"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"
	"pawwalk/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type PaymentValidator struct {
	validate  *validator.Validate
	minAmount int64
	logger    *logger.Logger
}

// NewPaymentValidator rejects amounts that are not strictly greater than minAmount.
// Minimums below zero are raised to zero so amount > 0 always holds.
func NewPaymentValidator(log *logger.Logger, minAmount int64) *PaymentValidator {
	return &PaymentValidator{
		validate:  validation.New(),
		minAmount: max(minAmount, 0),
		logger:    log,
	}
}

func (v *PaymentValidator) MinAmount() int64 {
	return v.minAmount
}

func (v *PaymentValidator) Validate(payment *model.Payment) error {
	if payment == nil {
		return apperrors.InvalidPayment("payment is required", nil)
	}

	errs, err := validation.Struct(v.validate, payment)
	if err != nil {
		return apperrors.Internal("failed to validate payment", err)
	}

	if payment.Amount <= v.minAmount {
		errs = append(errs, validation.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("amount must be greater than %d", v.minAmount),
		})
	}

	if len(errs) > 0 {
		v.logger.Debug("Payment rejected", "payment_id", payment.ID, "errors", errs.Error())
		return apperrors.InvalidPayment("invalid payment", errs.Details())
	}
	return nil
}
