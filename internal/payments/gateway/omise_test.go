package gateway

import (
	"testing"

	"github.com/omise/omise-go"
)

func TestChargeResult(t *testing.T) {
	code, message := "insufficient_fund", "insufficient funds"

	tests := []struct {
		name   string
		charge *omise.Charge
		want   Result
	}{
		{
			name:   "successful",
			charge: &omise.Charge{Base: omise.Base{ID: "chrg_1"}, Status: omise.ChargeStatus(chargeSuccessful)},
			want:   Result{Success: true, Reference: "chrg_1"},
		},
		{
			name: "failed",
			charge: &omise.Charge{
				Base:           omise.Base{ID: "chrg_2"},
				Status:         omise.ChargeStatus(chargeFailed),
				FailureCode:    &code,
				FailureMessage: &message,
			},
			want: Result{Reference: "chrg_2", FailureCode: code, FailureMessage: message},
		},
		{
			name:   "pending",
			charge: &omise.Charge{Base: omise.Base{ID: "chrg_3"}, Status: omise.ChargeStatus("pending")},
			want:   Result{Pending: true, Reference: "chrg_3"},
		},
		{
			name:   "expired",
			charge: &omise.Charge{Base: omise.Base{ID: "chrg_4"}, Status: omise.ChargeStatus(chargeExpired)},
			want:   Result{Reference: "chrg_4", FailureCode: "expired", FailureMessage: "charge expired"},
		},
		{
			name:   "reversed",
			charge: &omise.Charge{Base: omise.Base{ID: "chrg_5"}, Status: omise.ChargeStatus(chargeReversed)},
			want:   Result{Reference: "chrg_5", FailureCode: "reversed", FailureMessage: "charge reversed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chargeResult(tt.charge); got != tt.want {
				t.Errorf("chargeResult() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
