package listings

import (
	"context"
	"fmt"
	"time"

	"stayvault/internal/shared/constants"
	"stayvault/pkg/cache"

	"github.com/google/uuid"
)

// BookingSource provides the existing bookings of a listing (to avoid
// circular dependency on the bookings package)
type BookingSource interface {
	GetBookedSlots(ctx context.Context, listingID uuid.UUID) ([]BookedSlot, error)
}

// AvailabilityResult is the answer to one availability query
type AvailabilityResult struct {
	ListingID string `json:"listing_id"`
	Date      string `json:"date"`
	Hours     []int  `json:"hours,omitempty"`
	Available bool   `json:"available"`
}

// Service interface defines the contract for listing business logic
type Service interface {
	CreateListing(ctx context.Context, hostID uuid.UUID, req CreateListingRequest) (*Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	GetHostListings(ctx context.Context, hostID uuid.UUID) ([]Listing, error)
	ListListings(ctx context.Context, limit, offset int) ([]Listing, int64, error)

	// CheckAvailability answers whether a slot is free. Hours are only
	// meaningful for HOURLY listings.
	CheckAvailability(ctx context.Context, listingID uuid.UUID, date time.Time, hours []int) (*AvailabilityResult, error)

	// InvalidateAvailability drops cached answers for a listing; called by
	// the bookings service after it creates or cancels a booking
	InvalidateAvailability(ctx context.Context, listingID uuid.UUID)

	SetBookingSource(source BookingSource)
}

type service struct {
	repo          Repository
	bookingSource BookingSource
	cache         cache.Service
	cacheTTL      time.Duration
}

// NewService creates a new listing service instance. cache may be nil when
// Redis is unavailable; availability then always hits the store.
func NewService(repo Repository, cacheService cache.Service, cacheTTL time.Duration) Service {
	return &service{
		repo:     repo,
		cache:    cacheService,
		cacheTTL: cacheTTL,
	}
}

// SetBookingSource injects the booking adapter after both services exist
func (s *service) SetBookingSource(source BookingSource) {
	s.bookingSource = source
}

func (s *service) CreateListing(ctx context.Context, hostID uuid.UUID, req CreateListingRequest) (*Listing, error) {
	mode := PricingMode(req.Mode)
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid pricing mode: %s", req.Mode)
	}

	policy := PolicyFlexible
	if req.CancellationPolicy != "" {
		policy = CancellationPolicy(req.CancellationPolicy)
		if !policy.IsValid() {
			return nil, fmt.Errorf("invalid cancellation policy: %s", req.CancellationPolicy)
		}
	}

	listing := &Listing{
		HostID:             hostID,
		Title:              req.Title,
		Description:        req.Description,
		Mode:               mode,
		BasePrice:          req.BasePrice,
		ExtraGuestFee:      req.ExtraGuestFee,
		CautionFee:         req.CautionFee,
		MaxGuests:          req.MaxGuests,
		CancellationPolicy: policy,
		CheckOutHour:       req.CheckOutHour,
		OpenHours:          req.OpenHours,
		Status:             "ACTIVE",
	}
	if listing.MaxGuests <= 0 {
		listing.MaxGuests = 2
	}
	if listing.CheckOutHour <= 0 || listing.CheckOutHour > 23 {
		listing.CheckOutHour = 11
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return listing, nil
}

func (s *service) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetHostListings(ctx context.Context, hostID uuid.UUID) ([]Listing, error) {
	return s.repo.GetByHostID(ctx, hostID)
}

func (s *service) ListListings(ctx context.Context, limit, offset int) ([]Listing, int64, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *service) CheckAvailability(ctx context.Context, listingID uuid.UUID, date time.Time, hours []int) (*AvailabilityResult, error) {
	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.Mode == ModeHourly && len(hours) == 0 {
		return nil, fmt.Errorf("hourly listing requires at least one hour")
	}
	if listing.Mode == ModeDaily && len(hours) > 0 {
		return nil, fmt.Errorf("daily listing does not accept hour slots")
	}

	day := DateOnly(date)
	result := &AvailabilityResult{
		ListingID: listingID.String(),
		Date:      day.Format("2006-01-02"),
		Hours:     hours,
	}

	// Hourly listings must also be open at the requested hours
	for _, h := range hours {
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("invalid hour slot: %d", h)
		}
		if !listing.IsHourOpen(day.Weekday(), h) {
			result.Available = false
			return result, nil
		}
	}

	available, err := s.lookupAvailability(ctx, listing, day, hours)
	if err != nil {
		return nil, err
	}
	result.Available = available
	return result, nil
}

// lookupAvailability consults the cache before computing from the booking
// set. Cached answers are only a read optimization; booking creation
// re-checks inside its critical section.
func (s *service) lookupAvailability(ctx context.Context, listing *Listing, day time.Time, hours []int) (bool, error) {
	compute := func() (bool, error) {
		if s.bookingSource == nil {
			return false, fmt.Errorf("booking source not configured")
		}
		slots, err := s.bookingSource.GetBookedSlots(ctx, listing.ID)
		if err != nil {
			return false, fmt.Errorf("failed to load bookings: %w", err)
		}
		if listing.Mode == ModeHourly {
			return AreHoursAvailable(slots, day, hours), nil
		}
		return IsDateAvailable(slots, day), nil
	}

	if s.cache == nil || len(hours) > 1 {
		return compute()
	}

	key := constants.AvailabilityDayKey(listing.ID.String(), day.Format("2006-01-02"))
	if len(hours) == 1 {
		key = constants.AvailabilityHourKey(listing.ID.String(), day.Format("2006-01-02"), hours[0])
	}

	var available bool
	err := s.cache.GetOrSet(ctx, key, s.cacheTTL, func() (interface{}, error) {
		return compute()
	}, &available)
	if err != nil {
		// Cache trouble must not fail the query
		return compute()
	}
	return available, nil
}

func (s *service) InvalidateAvailability(ctx context.Context, listingID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.DeletePattern(ctx, constants.AvailabilityListingPattern(listingID.String()))
}
