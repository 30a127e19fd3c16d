package model

import "time"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Forward only; Refunded is reachable solely from Completed.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing, PaymentFailed},
	PaymentProcessing: {PaymentCompleted, PaymentFailed},
	PaymentCompleted:  {PaymentRefunded},
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentFailed || s == PaymentRefunded
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return allowed(paymentTransitions, s, next)
}

type Payment struct {
	ID             string        `json:"id" bson:"_id" validate:"required"`
	BookingID      string        `json:"booking_id" bson:"booking_id"`
	Amount         int64         `json:"amount" bson:"amount"`
	Currency       string        `json:"currency" bson:"currency" validate:"required,len=3,alpha"`
	PayerID        string        `json:"payer_id" bson:"payer_id" validate:"required"`
	PayeeID        string        `json:"payee_id" bson:"payee_id" validate:"required,nefield=PayerID"`
	Status         PaymentStatus `json:"status" bson:"status" validate:"required,oneof=pending processing"`
	Source         string        `json:"-" bson:"-"`
	GatewayRef     string        `json:"gateway_ref,omitempty" bson:"gateway_ref,omitempty"`
	RefundedAmount int64         `json:"refunded_amount,omitempty" bson:"refunded_amount,omitempty"`
	FailureCode    string        `json:"failure_code,omitempty" bson:"failure_code,omitempty"`
	FailureMessage string        `json:"failure_message,omitempty" bson:"failure_message,omitempty"`
	Version        int64         `json:"version" bson:"version"`
	Timestamp      time.Time     `json:"timestamp" bson:"timestamp"`
	UpdatedAt      time.Time     `json:"updated_at" bson:"updated_at"`
}

func (p *Payment) TransitionTo(next PaymentStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "payment", From: string(p.Status), To: string(next)}
	}
	p.Status = next
	return nil
}
