package gateway

import (
	"context"
	"fmt"
	"strings"

	"pawwalk/pkg/model"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

const (
	metadataPaymentID = "payment_id"
	metadataBookingID = "booking_id"

	chargeSuccessful = "successful"
	chargeFailed     = "failed"
	chargeExpired    = "expired"
	chargeReversed   = "reversed"

	lookupPageSize = 100
)

// Omise charges cards and sources through the Omise API. Sources prefixed with
// "tokn_" are card tokens; anything else is treated as a source id.
type Omise struct {
	client *omise.Client
}

func NewOmise(publicKey, secretKey string) (*Omise, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create omise client: %w", err)
	}
	return &Omise{client: client}, nil
}

func (o *Omise) Submit(ctx context.Context, payment *model.Payment) (Result, error) {
	op := &operations.CreateCharge{
		Amount:   payment.Amount,
		Currency: strings.ToLower(payment.Currency),
		Metadata: map[string]any{
			metadataPaymentID: payment.ID,
			metadataBookingID: payment.BookingID,
		},
	}
	if strings.HasPrefix(payment.Source, "tokn_") {
		op.Card = payment.Source
	} else {
		op.Source = payment.Source
	}

	charge := &omise.Charge{}
	if err := o.do(ctx, func() error { return o.client.Do(charge, op) }); err != nil {
		return Result{}, fmt.Errorf("omise create charge: %w", err)
	}
	return chargeResult(charge), nil
}

func (o *Omise) Refund(ctx context.Context, reference string, amount int64) (Result, error) {
	refund := &omise.Refund{}
	op := &operations.CreateRefund{
		ChargeID: reference,
		Amount:   amount,
	}
	if err := o.do(ctx, func() error { return o.client.Do(refund, op) }); err != nil {
		return Result{}, fmt.Errorf("omise create refund: %w", err)
	}
	return Result{Success: true, Reference: refund.ID}, nil
}

// Lookup retrieves the charge by reference, or scans recent charges for the
// payment id when the submit never returned a reference.
func (o *Omise) Lookup(ctx context.Context, paymentID, reference string) (Result, error) {
	if reference != "" {
		charge := &omise.Charge{}
		op := &operations.RetrieveCharge{ChargeID: reference}
		if err := o.do(ctx, func() error { return o.client.Do(charge, op) }); err != nil {
			return Result{}, fmt.Errorf("omise retrieve charge: %w", err)
		}
		return chargeResult(charge), nil
	}

	list := &omise.ChargeList{}
	op := &operations.ListCharges{
		List: operations.List{
			Limit: lookupPageSize,
			Order: omise.ReverseChronological,
		},
	}
	if err := o.do(ctx, func() error { return o.client.Do(list, op) }); err != nil {
		return Result{}, fmt.Errorf("omise list charges: %w", err)
	}
	for _, charge := range list.Data {
		if id, _ := charge.Metadata[metadataPaymentID].(string); id == paymentID {
			return chargeResult(charge), nil
		}
	}
	return Result{}, ErrUnknownCharge
}

// do runs the blocking SDK call and gives up when ctx is done. The SDK has no
// context support, so an abandoned call may still complete at Omise.
func (o *Omise) do(ctx context.Context, call func() error) error {
	done := make(chan error, 1)
	go func() { done <- call() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func chargeResult(charge *omise.Charge) Result {
	result := Result{Reference: charge.ID}
	switch string(charge.Status) {
	case chargeSuccessful:
		result.Success = true
	case chargeFailed:
		if charge.FailureCode != nil {
			result.FailureCode = *charge.FailureCode
		}
		if charge.FailureMessage != nil {
			result.FailureMessage = *charge.FailureMessage
		}
	case chargeExpired, chargeReversed:
		// Terminal without capture; Omise sets no failure code for these.
		result.FailureCode = string(charge.Status)
		result.FailureMessage = "charge " + string(charge.Status)
	default:
		result.Pending = true
	}
	return result
}
