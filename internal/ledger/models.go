package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EscrowTransaction is one atomic money movement. Rows are append-only:
// once COMPLETED they are never edited or deleted, and corrections are new
// opposite-direction rows against the same booking.
type EscrowTransaction struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID uuid.UUID         `gorm:"type:uuid;index;not null" json:"booking_id"`
	Type      TransactionType   `gorm:"type:varchar(20);check:type IN ('GUEST_PAYMENT', 'HOST_PAYOUT', 'REFUND', 'SERVICE_FEE');not null" json:"type"`
	Status    TransactionStatus `gorm:"type:varchar(20);check:status IN ('PENDING', 'COMPLETED', 'FAILED');default:'PENDING'" json:"status"`
	Amount    float64           `gorm:"not null" json:"amount"`
	Currency  string            `gorm:"type:varchar(3);default:'USD'" json:"currency"`

	FromUserID *uuid.UUID `gorm:"type:uuid" json:"from_user_id,omitempty"`
	ToUserID   *uuid.UUID `gorm:"type:uuid" json:"to_user_id,omitempty"`

	// GatewayRef is the external payment-processor reference
	GatewayRef    string `gorm:"type:varchar(100)" json:"gateway_ref,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	// Note carries audit annotations, e.g. the admin note on a dispute resolution
	Note string `gorm:"type:text" json:"note,omitempty"`

	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName sets the table name for EscrowTransaction
func (EscrowTransaction) TableName() string {
	return "escrow_transactions"
}

func (t *EscrowTransaction) IsPending() bool {
	return t.Status == StatusPending
}

func (t *EscrowTransaction) IsCompleted() bool {
	return t.Status == StatusCompleted
}

func (t *EscrowTransaction) IsFailed() bool {
	return t.Status == StatusFailed
}

func (t *EscrowTransaction) MarkCompleted(gatewayRef string) {
	now := time.Now()
	t.Status = StatusCompleted
	t.GatewayRef = gatewayRef
	t.ProcessedAt = &now
	t.UpdatedAt = now
}

func (t *EscrowTransaction) MarkFailed(reason string) {
	now := time.Now()
	t.Status = StatusFailed
	t.FailureReason = reason
	t.ProcessedAt = &now
	t.UpdatedAt = now
}

// SignedAmount is the movement's contribution to the booking's held balance
func (t *EscrowTransaction) SignedAmount() float64 {
	if !t.IsCompleted() {
		return 0
	}
	return t.Type.Sign() * t.Amount
}
