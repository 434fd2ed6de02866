package listings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a listing id does not exist
var ErrNotFound = errors.New("listing not found")

type Repository interface {
	Create(ctx context.Context, listing *Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	GetByHostID(ctx context.Context, hostID uuid.UUID) ([]Listing, error)
	List(ctx context.Context, limit, offset int) ([]Listing, int64, error)
	Update(ctx context.Context, listing *Listing) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, listing *Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

func (r *repository) GetByHostID(ctx context.Context, hostID uuid.UUID) ([]Listing, error) {
	var list []Listing
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Listing, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var totalCount int64
	if err := r.db.WithContext(ctx).Model(&Listing{}).Where("status = ?", "ACTIVE").Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	var list []Listing
	err := r.db.WithContext(ctx).
		Where("status = ?", "ACTIVE").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error

	return list, totalCount, err
}

func (r *repository) Update(ctx context.Context, listing *Listing) error {
	return r.db.WithContext(ctx).Save(listing).Error
}
