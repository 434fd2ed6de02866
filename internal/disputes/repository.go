package disputes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("dispute not found")

type Repository interface {
	Create(ctx context.Context, dispute *Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error)
	GetActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*Dispute, error)
	Update(ctx context.Context, dispute *Dispute) error
	List(ctx context.Context, status Status, limit, offset int) ([]Dispute, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, dispute *Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error) {
	var dispute Dispute
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dispute).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) GetActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*Dispute, error) {
	var dispute Dispute
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Where("status <> ?", StatusResolved).
		First(&dispute).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) Update(ctx context.Context, dispute *Dispute) error {
	return r.db.WithContext(ctx).Save(dispute).Error
}

func (r *repository) List(ctx context.Context, status Status, limit, offset int) ([]Dispute, int64, error) {
	base := r.db.WithContext(ctx).Model(&Dispute{})
	if status != "" {
		base = base.Where("status = ?", status)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var disputes []Dispute
	err := base.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&disputes).Error
	return disputes, total, err
}
