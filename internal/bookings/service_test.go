package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stayvault/internal/listings"
	"stayvault/internal/shared/config"
	"stayvault/pkg/logger"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository for service tests
type fakeRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: make(map[uuid.UUID]*Booking)}
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeRepo) GetByGuestID(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]Booking, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.GuestID == guestID {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) GetByHostID(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]Booking, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.HostID == hostID {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) GetByListingID(ctx context.Context, listingID uuid.UUID) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.ListingID == listingID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetByGroupID(ctx context.Context, groupID uuid.UUID) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.GroupID != nil && *b.GroupID == groupID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(ctx context.Context, booking *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[booking.ID]; !ok {
		return ErrNotFound
	}
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, cancelledAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	if cancelledAt != nil {
		b.CancelledAt = cancelledAt
	}
	return nil
}

func (f *fakeRepo) CreateWithAvailabilityCheck(ctx context.Context, booking *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var slots []listings.BookedSlot
	for _, b := range f.bookings {
		if b.ListingID == booking.ListingID {
			slots = append(slots, listings.BookedSlot{
				Date: b.Date, Duration: b.Duration, Hours: b.Hours, Cancelled: b.IsCancelled(),
			})
		}
	}
	if booking.IsHourly() {
		if !listings.AreHoursAvailable(slots, booking.Date, booking.Hours) {
			return ErrSlotTaken
		}
	} else {
		d := booking.Duration
		if d < 1 {
			d = 1
		}
		for i := 0; i < d; i++ {
			if !listings.IsDateAvailable(slots, booking.Date.AddDate(0, 0, i)) {
				return ErrSlotTaken
			}
		}
	}
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now()
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeRepo) GetDueForRelease(ctx context.Context, now time.Time, limit int) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.ReleaseDue(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetByPaymentStatus(ctx context.Context, status PaymentStatus) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.PaymentStatus == status {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetAll(ctx context.Context, query ListQuery) ([]Booking, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

// fakeListingService serves a fixed listing set
type fakeListingService struct {
	listings    map[uuid.UUID]*listings.Listing
	invalidated int
}

func (f *fakeListingService) CreateListing(ctx context.Context, hostID uuid.UUID, req listings.CreateListingRequest) (*listings.Listing, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeListingService) GetListing(ctx context.Context, id uuid.UUID) (*listings.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, listings.ErrNotFound
	}
	return l, nil
}

func (f *fakeListingService) GetHostListings(ctx context.Context, hostID uuid.UUID) ([]listings.Listing, error) {
	return nil, nil
}

func (f *fakeListingService) ListListings(ctx context.Context, limit, offset int) ([]listings.Listing, int64, error) {
	return nil, 0, nil
}

func (f *fakeListingService) CheckAvailability(ctx context.Context, listingID uuid.UUID, date time.Time, hours []int) (*listings.AvailabilityResult, error) {
	return nil, nil
}

func (f *fakeListingService) InvalidateAvailability(ctx context.Context, listingID uuid.UUID) {
	f.invalidated++
}

func (f *fakeListingService) SetBookingSource(source listings.BookingSource) {}

func testEscrowConfig() config.EscrowConfig {
	return config.EscrowConfig{
		FlexibleHold:        24 * time.Hour,
		ModerateHold:        72 * time.Hour,
		StrictHold:          168 * time.Hour,
		GuestServiceFeeRate: 0.12,
		HostServiceFeeRate:  0.03,
	}
}

func newTestService(t *testing.T, listing *listings.Listing) (Service, *fakeRepo, *fakeListingService) {
	t.Helper()
	repo := newFakeRepo()
	ls := &fakeListingService{listings: map[uuid.UUID]*listings.Listing{}}
	if listing != nil {
		ls.listings[listing.ID] = listing
	}
	svc := NewService(repo, ls, testEscrowConfig(), logger.New())
	return svc, repo, ls
}

func dailyListing() *listings.Listing {
	return &listings.Listing{
		ID:                 uuid.New(),
		HostID:             uuid.New(),
		Title:              "Loft near the river",
		Mode:               listings.ModeDaily,
		BasePrice:          25.0,
		ExtraGuestFee:      5.0,
		CautionFee:         12.1,
		MaxGuests:          4,
		CancellationPolicy: listings.PolicyFlexible,
		Status:             "ACTIVE",
	}
}

func TestCreateBookingPricing(t *testing.T) {
	listing := dailyListing()
	svc, _, ls := newTestService(t, listing)

	// 2 nights, 1 guest: base 50, subtotal 50, fee 6, caution 12.1 → 68.1
	resp, err := svc.CreateBooking(context.Background(), uuid.New(), CreateBookingRequest{
		ListingID: listing.ID.String(),
		Date:      "2025-03-01",
		Duration:  2,
		Guests:    1,
	})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	if len(resp.Bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(resp.Bookings))
	}

	b := resp.Bookings[0]
	if b.Subtotal != 50.0 {
		t.Errorf("subtotal = %v, want 50", b.Subtotal)
	}
	if b.UserServiceFee != 6.0 {
		t.Errorf("userServiceFee = %v, want 6", b.UserServiceFee)
	}
	if b.TotalPrice != 68.1 {
		t.Errorf("totalPrice = %v, want 68.1", b.TotalPrice)
	}
	if b.HostServiceFee != 1.5 {
		t.Errorf("hostServiceFee = %v, want 1.5", b.HostServiceFee)
	}
	if b.HostPayout != 48.5 {
		t.Errorf("hostPayout = %v, want 48.5", b.HostPayout)
	}
	if b.PlatformFee != 7.5 {
		t.Errorf("platformFee = %v, want 7.5", b.PlatformFee)
	}
	if !b.PricingConsistent() {
		t.Error("totalPrice must equal subtotal + userServiceFee + cautionFee")
	}
	if b.Status != StatusConfirmed {
		t.Errorf("status = %v, want CONFIRMED", b.Status)
	}
	if b.HandshakeStatus != HandshakeUnverified {
		t.Errorf("handshakeStatus = %v, want UNVERIFIED", b.HandshakeStatus)
	}
	if resp.HandshakeCode == "" {
		t.Error("expected a handshake code")
	}
	if ls.invalidated == 0 {
		t.Error("expected availability cache invalidation")
	}
}

func TestCreateBookingRejectsDoubleBooking(t *testing.T) {
	listing := dailyListing()
	svc, _, _ := newTestService(t, listing)
	ctx := context.Background()

	first := CreateBookingRequest{
		ListingID: listing.ID.String(),
		Date:      "2025-03-01",
		Duration:  3,
	}
	if _, err := svc.CreateBooking(ctx, uuid.New(), first); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	// Overlapping start inside [03-01, 03-04) must be rejected
	overlap := CreateBookingRequest{
		ListingID: listing.ID.String(),
		Date:      "2025-03-03",
		Duration:  1,
	}
	if _, err := svc.CreateBooking(ctx, uuid.New(), overlap); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	// Checkout day is free
	checkout := CreateBookingRequest{
		ListingID: listing.ID.String(),
		Date:      "2025-03-04",
		Duration:  1,
	}
	if _, err := svc.CreateBooking(ctx, uuid.New(), checkout); err != nil {
		t.Fatalf("checkout-day booking failed: %v", err)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	listing := dailyListing()
	svc, _, _ := newTestService(t, listing)
	ctx := context.Background()

	// Host booking own listing
	if _, err := svc.CreateBooking(ctx, listing.HostID, CreateBookingRequest{
		ListingID: listing.ID.String(), Date: "2025-03-01",
	}); !errors.Is(err, ErrOwnListing) {
		t.Errorf("expected ErrOwnListing, got %v", err)
	}

	// Too many guests
	if _, err := svc.CreateBooking(ctx, uuid.New(), CreateBookingRequest{
		ListingID: listing.ID.String(), Date: "2025-03-01", Guests: 9,
	}); !errors.Is(err, ErrTooManyGuests) {
		t.Errorf("expected ErrTooManyGuests, got %v", err)
	}

	// Hours on a daily listing
	if _, err := svc.CreateBooking(ctx, uuid.New(), CreateBookingRequest{
		ListingID: listing.ID.String(), Date: "2025-03-01", Hours: []int{9},
	}); !errors.Is(err, ErrHoursNotAllowed) {
		t.Errorf("expected ErrHoursNotAllowed, got %v", err)
	}
}

func TestCreateRecurringSeries(t *testing.T) {
	listing := dailyListing()
	svc, repo, _ := newTestService(t, listing)

	resp, err := svc.CreateBooking(context.Background(), uuid.New(), CreateBookingRequest{
		ListingID:      listing.ID.String(),
		Date:           "2025-03-01",
		Duration:       1,
		RecurringWeeks: 3,
	})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	if len(resp.Bookings) != 3 {
		t.Fatalf("expected 3 sibling bookings, got %d", len(resp.Bookings))
	}
	if resp.GroupID == nil {
		t.Fatal("expected a group id for the series")
	}

	siblings, err := repo.GetByGroupID(context.Background(), *resp.GroupID)
	if err != nil {
		t.Fatalf("GetByGroupID failed: %v", err)
	}
	if len(siblings) != 3 {
		t.Fatalf("expected 3 siblings in repo, got %d", len(siblings))
	}

	// Dates a week apart
	want := map[string]bool{"2025-03-01": true, "2025-03-08": true, "2025-03-15": true}
	for _, b := range resp.Bookings {
		if !want[b.Date.Format("2006-01-02")] {
			t.Errorf("unexpected series date %s", b.Date.Format("2006-01-02"))
		}
	}
}

func TestVerifyHandshake(t *testing.T) {
	listing := dailyListing()
	svc, _, _ := newTestService(t, listing)
	ctx := context.Background()

	resp, err := svc.CreateBooking(ctx, uuid.New(), CreateBookingRequest{
		ListingID: listing.ID.String(), Date: "2025-03-01",
	})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	bookingID := resp.Bookings[0].ID

	// Wrong host
	if _, err := svc.VerifyHandshake(ctx, bookingID, uuid.New(), resp.HandshakeCode); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}

	// Wrong code
	if _, err := svc.VerifyHandshake(ctx, bookingID, listing.HostID, "WRONG"); !errors.Is(err, ErrBadHandshakeCode) {
		t.Errorf("expected ErrBadHandshakeCode, got %v", err)
	}

	// Correct host + code
	b, err := svc.VerifyHandshake(ctx, bookingID, listing.HostID, resp.HandshakeCode)
	if err != nil {
		t.Fatalf("VerifyHandshake failed: %v", err)
	}
	if b.HandshakeStatus != HandshakeVerified {
		t.Errorf("handshakeStatus = %v, want VERIFIED", b.HandshakeStatus)
	}
	if b.VerifiedAt == nil {
		t.Error("verifiedAt not set")
	}

	// Re-verification is a no-op, not an error
	if _, err := svc.VerifyHandshake(ctx, bookingID, listing.HostID, resp.HandshakeCode); err != nil {
		t.Errorf("re-verification failed: %v", err)
	}
}

func TestCancelBooking(t *testing.T) {
	listing := dailyListing()
	svc, repo, _ := newTestService(t, listing)
	ctx := context.Background()
	guestID := uuid.New()

	resp, err := svc.CreateBooking(ctx, guestID, CreateBookingRequest{
		ListingID: listing.ID.String(), Date: "2025-03-01",
	})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	bookingID := resp.Bookings[0].ID

	// Stranger cannot cancel
	if err := svc.CancelBooking(ctx, bookingID, uuid.New()); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}

	if err := svc.CancelBooking(ctx, bookingID, guestID); err != nil {
		t.Fatalf("CancelBooking failed: %v", err)
	}

	b, _ := repo.GetByID(ctx, bookingID)
	if b.Status != StatusCancelled {
		t.Errorf("status = %v, want CANCELLED", b.Status)
	}

	// Cancelled booking frees the slot
	if _, err := svc.CreateBooking(ctx, uuid.New(), CreateBookingRequest{
		ListingID: listing.ID.String(), Date: "2025-03-01",
	}); err != nil {
		t.Fatalf("rebooking cancelled slot failed: %v", err)
	}

	// Double cancel
	if err := svc.CancelBooking(ctx, bookingID, guestID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelPaidBookingGoesThroughRefund(t *testing.T) {
	listing := dailyListing()
	svc, repo, _ := newTestService(t, listing)
	ctx := context.Background()
	guestID := uuid.New()

	resp, err := svc.CreateBooking(ctx, guestID, CreateBookingRequest{
		ListingID: listing.ID.String(), Date: "2025-03-01",
	})
	if err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	bookingID := resp.Bookings[0].ID

	b, _ := repo.GetByID(ctx, bookingID)
	b.PaymentStatus = PaymentPaidEscrow
	if err := repo.Update(ctx, b); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if err := svc.CancelBooking(ctx, bookingID, guestID); !errors.Is(err, ErrPaidBooking) {
		t.Fatalf("expected ErrPaidBooking, got %v", err)
	}
}
