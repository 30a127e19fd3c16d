package gateway

import (
	"context"
	"errors"

	"pawwalk/pkg/model"
)

// ErrUnknownCharge is returned by Lookup when the gateway has no record of the payment.
var ErrUnknownCharge = errors.New("gateway has no charge for payment")

// Result is the outcome of a gateway call. An error returned alongside it means
// the outcome is unknown; a nil error with Success false is a definitive decline.
type Result struct {
	Success        bool
	Pending        bool
	Reference      string
	FailureCode    string
	FailureMessage string
}

type Gateway interface {
	Submit(ctx context.Context, payment *model.Payment) (Result, error)
	Refund(ctx context.Context, reference string, amount int64) (Result, error)
	Lookup(ctx context.Context, paymentID, reference string) (Result, error)
}
