package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a transaction id does not exist
	ErrNotFound = errors.New("transaction not found")
	// ErrImmutable is returned on any attempt to rewrite a completed row
	ErrImmutable = errors.New("completed transactions are immutable")
)

// Repository is the append-mostly store for escrow transactions. A row may
// move PENDING -> COMPLETED or PENDING -> FAILED; nothing else mutates.
type Repository interface {
	Append(ctx context.Context, txn *EscrowTransaction) error
	MarkCompleted(ctx context.Context, id uuid.UUID, gatewayRef string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	GetByID(ctx context.Context, id uuid.UUID) (*EscrowTransaction, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]EscrowTransaction, error)
	ListAll(ctx context.Context, limit, offset int) ([]EscrowTransaction, int64, error)

	// GetAllCompleted streams every COMPLETED row for full-ledger replay
	GetAllCompleted(ctx context.Context) ([]EscrowTransaction, error)

	// HasCompleted reports whether any COMPLETED row of the given types
	// exists for the booking. The invariant guards are built on this.
	HasCompleted(ctx context.Context, bookingID uuid.UUID, types ...TransactionType) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, txn *EscrowTransaction) error {
	if !txn.Type.IsValid() {
		return fmt.Errorf("invalid transaction type: %s", txn.Type)
	}
	if txn.Amount < 0 {
		return fmt.Errorf("transaction amount must not be negative: %f", txn.Amount)
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, gatewayRef string) error {
	return r.transition(ctx, id, func(txn *EscrowTransaction) {
		txn.MarkCompleted(gatewayRef)
	})
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.transition(ctx, id, func(txn *EscrowTransaction) {
		txn.MarkFailed(reason)
	})
}

// transition applies a status change to a PENDING row inside a transaction,
// locking the row so concurrent completion attempts cannot race.
func (r *repository) transition(ctx context.Context, id uuid.UUID, apply func(*EscrowTransaction)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn EscrowTransaction
		err := tx.
			Set("gorm:query_option", "FOR UPDATE").
			Where("id = ?", id).
			First(&txn).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock transaction: %w", err)
		}

		if txn.Status != StatusPending {
			return ErrImmutable
		}

		apply(&txn)
		return tx.Model(&EscrowTransaction{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":         txn.Status,
				"gateway_ref":    txn.GatewayRef,
				"failure_reason": txn.FailureReason,
				"processed_at":   txn.ProcessedAt,
				"updated_at":     time.Now(),
			}).Error
	})
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*EscrowTransaction, error) {
	var txn EscrowTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]EscrowTransaction, error) {
	var txns []EscrowTransaction
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&txns).Error
	return txns, err
}

func (r *repository) ListAll(ctx context.Context, limit, offset int) ([]EscrowTransaction, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var totalCount int64
	if err := r.db.WithContext(ctx).Model(&EscrowTransaction{}).Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	var txns []EscrowTransaction
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&txns).Error

	return txns, totalCount, err
}

func (r *repository) GetAllCompleted(ctx context.Context) ([]EscrowTransaction, error) {
	var txns []EscrowTransaction
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusCompleted).
		Order("created_at ASC").
		Find(&txns).Error
	return txns, err
}

func (r *repository) HasCompleted(ctx context.Context, bookingID uuid.UUID, types ...TransactionType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&EscrowTransaction{}).
		Where("booking_id = ?", bookingID).
		Where("type IN ?", types).
		Where("status = ?", StatusCompleted).
		Count(&count).Error
	return count > 0, err
}

// HeldBalance replays a booking's completed rows into its current escrow
// balance. A negative result means the ledger is corrupt.
func HeldBalance(txns []EscrowTransaction) float64 {
	var balance float64
	for i := range txns {
		balance += txns[i].SignedAmount()
	}
	return balance
}
