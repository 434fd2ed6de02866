package ledger

import (
	"testing"

	"github.com/google/uuid"
)

func TestSignedAmount(t *testing.T) {
	bookingID := uuid.New()

	cases := []struct {
		name string
		txn  EscrowTransaction
		want float64
	}{
		{"completed payment adds to held balance", EscrowTransaction{BookingID: bookingID, Type: TypeGuestPayment, Status: StatusCompleted, Amount: 100}, 100},
		{"completed payout drains held balance", EscrowTransaction{BookingID: bookingID, Type: TypeHostPayout, Status: StatusCompleted, Amount: 67.9}, -67.9},
		{"completed refund drains held balance", EscrowTransaction{BookingID: bookingID, Type: TypeRefund, Status: StatusCompleted, Amount: 100}, -100},
		{"service fee rows are internal", EscrowTransaction{BookingID: bookingID, Type: TypeServiceFee, Status: StatusCompleted, Amount: 7.5}, 0},
		{"pending rows do not count", EscrowTransaction{BookingID: bookingID, Type: TypeGuestPayment, Status: StatusPending, Amount: 100}, 0},
		{"failed rows do not count", EscrowTransaction{BookingID: bookingID, Type: TypeHostPayout, Status: StatusFailed, Amount: 67.9}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.txn.SignedAmount(); got != tc.want {
				t.Errorf("SignedAmount() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsRelease(t *testing.T) {
	if !TypeHostPayout.IsRelease() || !TypeRefund.IsRelease() {
		t.Error("payout and refund must both count as releases")
	}
	if TypeGuestPayment.IsRelease() || TypeServiceFee.IsRelease() {
		t.Error("payment and fee rows must not count as releases")
	}
}

func TestMarkTransitions(t *testing.T) {
	txn := EscrowTransaction{Type: TypeGuestPayment, Status: StatusPending, Amount: 50}

	txn.MarkCompleted("ch_abc123")
	if !txn.IsCompleted() || txn.GatewayRef != "ch_abc123" || txn.ProcessedAt == nil {
		t.Errorf("MarkCompleted left %+v", txn)
	}

	failed := EscrowTransaction{Type: TypeHostPayout, Status: StatusPending, Amount: 30}
	failed.MarkFailed("insufficient gateway balance")
	if !failed.IsFailed() || failed.FailureReason == "" || failed.ProcessedAt == nil {
		t.Errorf("MarkFailed left %+v", failed)
	}
}
