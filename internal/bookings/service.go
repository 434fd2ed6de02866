package bookings

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"stayvault/internal/listings"
	"stayvault/internal/shared/config"
	"stayvault/pkg/locks"
	"stayvault/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrListingInactive  = errors.New("listing is not accepting bookings")
	ErrTooManyGuests    = errors.New("guest count exceeds listing capacity")
	ErrHoursRequired    = errors.New("hourly listings require at least one hour slot")
	ErrHoursNotAllowed  = errors.New("daily listings do not take hour slots")
	ErrHoursClosed      = errors.New("requested hours fall outside the listing's open hours")
	ErrOwnListing       = errors.New("hosts cannot book their own listing")
	ErrNotOwner         = errors.New("booking does not belong to user")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrPaidBooking      = errors.New("paid bookings are cancelled through refund")
	ErrBadHandshakeCode = errors.New("handshake code does not match")
)

// Service interface defines the contract for booking business logic
type Service interface {
	CreateBooking(ctx context.Context, guestID uuid.UUID, req CreateBookingRequest) (*CreateBookingResponse, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	GetGuestBookings(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]Booking, int64, error)
	GetHostBookings(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]Booking, int64, error)
	GetAllBookings(ctx context.Context, query ListQuery) ([]Booking, int64, error)

	// CancelBooking cancels an unpaid booking. Paid bookings move money and
	// must go through the escrow refund path instead.
	CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) error

	// VerifyHandshake records that the host confirmed the guest's access
	// code at the door
	VerifyHandshake(ctx context.Context, bookingID, hostID uuid.UUID, code string) (*Booking, error)

	// GetBookedSlots implements listings.BookingSource
	GetBookedSlots(ctx context.Context, listingID uuid.UUID) ([]listings.BookedSlot, error)
}

type service struct {
	repo           Repository
	listingService listings.Service
	listingLocks   *locks.KeyedMutex
	cfg            config.EscrowConfig
	log            *logger.Logger
}

func NewService(repo Repository, listingService listings.Service, cfg config.EscrowConfig, log *logger.Logger) Service {
	return &service{
		repo:           repo,
		listingService: listingService,
		listingLocks:   locks.NewKeyedMutex(),
		cfg:            cfg,
		log:            log,
	}
}

// CreateBooking quotes the price, then runs "check availability + create" as
// one critical section per listing. The repository re-checks inside its
// transaction, so the keyed lock only spares us needless insert conflicts
// between goroutines of this process.
func (s *service) CreateBooking(ctx context.Context, guestID uuid.UUID, req CreateBookingRequest) (*CreateBookingResponse, error) {
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return nil, fmt.Errorf("invalid listing id: %w", err)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date, expected YYYY-MM-DD: %w", err)
	}

	listing, err := s.listingService.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}

	if err := s.validateRequest(listing, guestID, date, req); err != nil {
		return nil, err
	}

	duration := req.Duration
	if duration < 1 {
		duration = 1
	}
	guests := req.Guests
	if guests < 1 {
		guests = 1
	}

	breakdown := s.quote(listing, duration, len(req.Hours), guests)

	code, err := generateHandshakeCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate handshake code: %w", err)
	}

	dates := []time.Time{date}
	var groupID *uuid.UUID
	if req.RecurringWeeks > 1 {
		id := uuid.New()
		groupID = &id
		for week := 1; week < req.RecurringWeeks; week++ {
			dates = append(dates, date.AddDate(0, 0, 7*week))
		}
	}

	created := make([]Booking, 0, len(dates))
	err = s.listingLocks.WithLock(listingID.String(), func() error {
		for _, d := range dates {
			booking := s.buildBooking(listing, guestID, groupID, d, duration, req.Hours, guests, breakdown, code)
			if err := s.repo.CreateWithAvailabilityCheck(ctx, booking); err != nil {
				if len(created) > 0 {
					// Partial series: surface which date collided so the
					// guest can retry the remainder
					return fmt.Errorf("booked %d of %d dates, %s unavailable: %w",
						len(created), len(dates), d.Format("2006-01-02"), err)
				}
				return err
			}
			created = append(created, *booking)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.listingService.InvalidateAvailability(ctx, listingID)

	s.log.InfoWithContext(ctx, "Booking created", map[string]interface{}{
		"booking_id":  created[0].ID.String(),
		"listing_id":  listingID.String(),
		"guest_id":    guestID.String(),
		"total_price": breakdown.TotalPrice,
		"series":      len(created),
	})

	return &CreateBookingResponse{
		Bookings:      created,
		GroupID:       groupID,
		Breakdown:     breakdown,
		HandshakeCode: code,
		CreatedAt:     created[0].CreatedAt,
	}, nil
}

func (s *service) validateRequest(listing *listings.Listing, guestID uuid.UUID, date time.Time, req CreateBookingRequest) error {
	if !listing.IsActive() {
		return ErrListingInactive
	}
	if listing.HostID == guestID {
		return ErrOwnListing
	}
	if listing.MaxGuests > 0 && req.Guests > listing.MaxGuests {
		return ErrTooManyGuests
	}

	switch listing.Mode {
	case listings.ModeHourly:
		if len(req.Hours) == 0 {
			return ErrHoursRequired
		}
		for _, h := range req.Hours {
			if !listing.IsHourOpen(date.Weekday(), h) {
				return ErrHoursClosed
			}
		}
	default:
		if len(req.Hours) > 0 {
			return ErrHoursNotAllowed
		}
	}
	return nil
}

// quote computes the frozen financial breakdown. The creation invariant is
// totalPrice = subtotal + userServiceFee + cautionFee; the caution fee is a
// deposit, not revenue, so it never feeds the service-fee rates.
func (s *service) quote(listing *listings.Listing, duration, hourCount, guests int) PriceBreakdown {
	units := duration
	if listing.Mode == listings.ModeHourly {
		units = hourCount
	}

	basePrice := round2(listing.BasePrice * float64(units))
	extraGuests := guests - 1
	if extraGuests < 0 {
		extraGuests = 0
	}
	extraGuestFees := round2(listing.ExtraGuestFee * float64(extraGuests) * float64(units))
	extrasTotal := extraGuestFees
	subtotal := round2(basePrice + extrasTotal)
	userServiceFee := round2(subtotal * s.cfg.GuestServiceFeeRate)
	totalPrice := round2(subtotal + userServiceFee + listing.CautionFee)

	return PriceBreakdown{
		BasePrice:      basePrice,
		ExtraGuestFees: extraGuestFees,
		ExtrasTotal:    extrasTotal,
		Subtotal:       subtotal,
		UserServiceFee: userServiceFee,
		CautionFee:     listing.CautionFee,
		TotalPrice:     totalPrice,
	}
}

func (s *service) buildBooking(listing *listings.Listing, guestID uuid.UUID, groupID *uuid.UUID, date time.Time, duration int, hours []int, guests int, breakdown PriceBreakdown, code string) *Booking {
	hostServiceFee := round2(breakdown.Subtotal * s.cfg.HostServiceFeeRate)
	hostPayout := round2(breakdown.Subtotal - hostServiceFee)
	platformFee := round2(breakdown.UserServiceFee + hostServiceFee)

	return &Booking{
		ListingID:       listing.ID,
		GuestID:         guestID,
		HostID:          listing.HostID,
		Date:            date,
		Duration:        duration,
		Hours:           hours,
		Guests:          guests,
		GroupID:         groupID,
		BasePrice:       breakdown.BasePrice,
		ExtraGuestFees:  breakdown.ExtraGuestFees,
		ExtrasTotal:     breakdown.ExtrasTotal,
		Subtotal:        breakdown.Subtotal,
		UserServiceFee:  breakdown.UserServiceFee,
		HostServiceFee:  hostServiceFee,
		CautionFee:      breakdown.CautionFee,
		TotalPrice:      breakdown.TotalPrice,
		HostPayout:      hostPayout,
		PlatformFee:     platformFee,
		Status:          StatusConfirmed,
		CautionStatus:   CautionHeld,
		DisputeStatus:   DisputeNone,
		HandshakeStatus: HandshakeUnverified,
		HandshakeCode:   code,
	}
}

func (s *service) GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, bookingID)
}

func (s *service) GetGuestBookings(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]Booking, int64, error) {
	return s.repo.GetByGuestID(ctx, guestID, limit, offset)
}

func (s *service) GetHostBookings(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]Booking, int64, error) {
	return s.repo.GetByHostID(ctx, hostID, limit, offset)
}

func (s *service) GetAllBookings(ctx context.Context, query ListQuery) ([]Booking, int64, error) {
	return s.repo.GetAll(ctx, query)
}

func (s *service) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) error {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.GuestID != userID && booking.HostID != userID {
		return ErrNotOwner
	}
	if booking.IsCancelled() {
		return ErrAlreadyCancelled
	}
	if booking.PaymentStatus != "" {
		return ErrPaidBooking
	}

	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, bookingID, StatusCancelled, &now); err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	s.listingService.InvalidateAvailability(ctx, booking.ListingID)
	return nil
}

func (s *service) VerifyHandshake(ctx context.Context, bookingID, hostID uuid.UUID, code string) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.HostID != hostID {
		return nil, ErrNotOwner
	}
	if booking.IsCancelled() {
		return nil, ErrAlreadyCancelled
	}
	if booking.HandshakeStatus == HandshakeVerified {
		return booking, nil
	}
	if booking.HandshakeCode != code {
		return nil, ErrBadHandshakeCode
	}

	now := time.Now()
	booking.HandshakeStatus = HandshakeVerified
	booking.VerifiedAt = &now
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to record handshake: %w", err)
	}

	s.log.InfoWithContext(ctx, "Handshake verified", map[string]interface{}{
		"booking_id": bookingID.String(),
		"host_id":    hostID.String(),
	})
	return booking, nil
}

// GetBookedSlots satisfies listings.BookingSource so the availability checker
// can see this package's bookings without importing it
func (s *service) GetBookedSlots(ctx context.Context, listingID uuid.UUID) ([]listings.BookedSlot, error) {
	bookings, err := s.repo.GetByListingID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return toBookedSlots(bookings), nil
}

func generateHandshakeCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
