package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stayvault/internal/listings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("booking not found")
	ErrSlotTaken    = errors.New("requested slot is no longer available")
	ErrFrozenFields = errors.New("financial fields are frozen after payment")
)

type Repository interface {
	// Core booking operations
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByGuestID(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]Booking, int64, error)
	GetByHostID(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]Booking, int64, error)
	GetByListingID(ctx context.Context, listingID uuid.UUID) ([]Booking, error)
	GetByGroupID(ctx context.Context, groupID uuid.UUID) ([]Booking, error)
	Update(ctx context.Context, booking *Booking) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, cancelledAt *time.Time) error

	// Concurrency-safe creation: availability re-check and insert in one
	// transaction
	CreateWithAvailabilityCheck(ctx context.Context, booking *Booking) error

	// Scheduler and financials support
	GetDueForRelease(ctx context.Context, now time.Time, limit int) ([]Booking, error)
	GetByPaymentStatus(ctx context.Context, status PaymentStatus) ([]Booking, error)

	// Admin operations
	GetAll(ctx context.Context, query ListQuery) ([]Booking, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetByGuestID(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]Booking, int64, error) {
	return r.paginated(ctx, r.db.WithContext(ctx).Model(&Booking{}).Where("guest_id = ?", guestID), limit, offset)
}

func (r *repository) GetByHostID(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]Booking, int64, error) {
	return r.paginated(ctx, r.db.WithContext(ctx).Model(&Booking{}).Where("host_id = ?", hostID), limit, offset)
}

func (r *repository) GetByListingID(ctx context.Context, listingID uuid.UUID) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("date ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) GetByGroupID(ctx context.Context, groupID uuid.UUID) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("date ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) Update(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, cancelledAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if cancelledAt != nil {
		updates["cancelled_at"] = *cancelledAt
	}

	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateWithAvailabilityCheck inserts a booking after re-checking the slot
// inside the transaction. Existing bookings for the listing are locked FOR
// UPDATE so a concurrent insert cannot slip between the check and the create.
// The partial unique index on (listing_id, date) backstops daily bookings
// across processes.
func (r *repository) CreateWithAvailabilityCheck(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []Booking
		err := tx.
			Where("listing_id = ?", booking.ListingID).
			Where("status <> ?", StatusCancelled).
			Set("gorm:query_option", "FOR UPDATE").
			Find(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to lock listing bookings: %w", err)
		}

		slots := toBookedSlots(existing)
		if booking.IsHourly() {
			if !listings.AreHoursAvailable(slots, booking.Date, booking.Hours) {
				return ErrSlotTaken
			}
		} else {
			duration := booking.Duration
			if duration < 1 {
				duration = 1
			}
			for i := 0; i < duration; i++ {
				if !listings.IsDateAvailable(slots, booking.Date.AddDate(0, 0, i)) {
					return ErrSlotTaken
				}
			}
		}

		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
}

func (r *repository) GetDueForRelease(ctx context.Context, now time.Time, limit int) ([]Booking, error) {
	var bookings []Booking
	query := r.db.WithContext(ctx).
		Where("payment_status = ?", PaymentPaidEscrow).
		Where("dispute_status = ?", DisputeNone).
		Where("escrow_release_date IS NOT NULL AND escrow_release_date <= ?", now).
		Order("escrow_release_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&bookings).Error
	return bookings, err
}

func (r *repository) GetByPaymentStatus(ctx context.Context, status PaymentStatus) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("payment_status = ?", status).
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) GetAll(ctx context.Context, query ListQuery) ([]Booking, int64, error) {
	base := r.db.WithContext(ctx).Model(&Booking{})

	if query.Status != "" {
		base = base.Where("status = ?", query.Status)
	}
	if query.PaymentStatus != "" {
		base = base.Where("payment_status = ?", query.PaymentStatus)
	}
	if query.DisputeStatus != "" {
		base = base.Where("dispute_status = ?", query.DisputeStatus)
	}
	if query.ListingID != "" {
		if listingID, err := uuid.Parse(query.ListingID); err == nil {
			base = base.Where("listing_id = ?", listingID)
		}
	}
	if query.DateFrom != "" {
		if from, err := time.Parse("2006-01-02", query.DateFrom); err == nil {
			base = base.Where("date >= ?", from)
		}
	}
	if query.DateTo != "" {
		if to, err := time.Parse("2006-01-02", query.DateTo); err == nil {
			base = base.Where("date <= ?", to)
		}
	}

	return r.paginated(ctx, base, query.Limit, query.Offset)
}

func (r *repository) paginated(ctx context.Context, base *gorm.DB, limit, offset int) ([]Booking, int64, error) {
	var bookings []Booking
	var total int64

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := base.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&bookings).Error
	return bookings, total, err
}

func toBookedSlots(bs []Booking) []listings.BookedSlot {
	slots := make([]listings.BookedSlot, 0, len(bs))
	for _, b := range bs {
		slots = append(slots, listings.BookedSlot{
			Date:      b.Date,
			Duration:  b.Duration,
			Hours:     b.Hours,
			Cancelled: b.IsCancelled(),
		})
	}
	return slots
}
