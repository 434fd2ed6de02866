package ledger

// TransactionType classifies a money movement on the ledger
type TransactionType string

const (
	TypeGuestPayment TransactionType = "GUEST_PAYMENT"
	TypeHostPayout   TransactionType = "HOST_PAYOUT"
	TypeRefund       TransactionType = "REFUND"
	TypeServiceFee   TransactionType = "SERVICE_FEE"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TypeGuestPayment, TypeHostPayout, TypeRefund, TypeServiceFee:
		return true
	}
	return false
}

func (t TransactionType) String() string {
	return string(t)
}

// IsRelease reports whether this type moves held funds out of escrow.
// At most one release may complete per booking.
func (t TransactionType) IsRelease() bool {
	return t == TypeHostPayout || t == TypeRefund
}

// Sign gives the direction of the movement from the platform's point of
// view: +1 into escrow, -1 out of escrow, 0 for internal fee rows.
func (t TransactionType) Sign() float64 {
	switch t {
	case TypeGuestPayment:
		return 1
	case TypeHostPayout, TypeRefund:
		return -1
	default:
		return 0
	}
}

// TransactionStatus tracks a movement through the gateway
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s TransactionStatus) String() string {
	return string(s)
}
