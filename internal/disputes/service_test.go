package disputes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stayvault/internal/bookings"
	"stayvault/internal/escrow"
	"stayvault/internal/ledger"
	"stayvault/internal/listings"
	"stayvault/internal/notifications"
	"stayvault/pkg/logger"

	"github.com/google/uuid"
)

type memDisputes struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Dispute
}

func newMemDisputes() *memDisputes {
	return &memDisputes{rows: make(map[uuid.UUID]*Dispute)}
}

func (m *memDisputes) Create(ctx context.Context, dispute *Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	dispute.CreatedAt = time.Now()
	copied := *dispute
	m.rows[dispute.ID] = &copied
	return nil
}

func (m *memDisputes) GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *memDisputes) GetActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.rows {
		if d.BookingID == bookingID && !d.IsResolved() {
			copied := *d
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memDisputes) Update(ctx context.Context, dispute *Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[dispute.ID]; !ok {
		return ErrNotFound
	}
	copied := *dispute
	m.rows[dispute.ID] = &copied
	return nil
}

func (m *memDisputes) List(ctx context.Context, status Status, limit, offset int) ([]Dispute, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Dispute
	for _, d := range m.rows {
		if status == "" || d.Status == status {
			out = append(out, *d)
		}
	}
	return out, int64(len(out)), nil
}

type memBookingStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*bookings.Booking
}

func newMemBookingStore() *memBookingStore {
	return &memBookingStore{rows: make(map[uuid.UUID]*bookings.Booking)}
}

func (m *memBookingStore) put(b *bookings.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *b
	m.rows[b.ID] = &copied
}

func (m *memBookingStore) GetByID(ctx context.Context, id uuid.UUID) (*bookings.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, bookings.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *memBookingStore) GetByGuestID(ctx context.Context, guestID uuid.UUID, limit, offset int) ([]bookings.Booking, int64, error) {
	return nil, 0, nil
}

func (m *memBookingStore) GetByHostID(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]bookings.Booking, int64, error) {
	return nil, 0, nil
}

func (m *memBookingStore) GetByListingID(ctx context.Context, listingID uuid.UUID) ([]bookings.Booking, error) {
	return nil, nil
}

func (m *memBookingStore) GetByGroupID(ctx context.Context, groupID uuid.UUID) ([]bookings.Booking, error) {
	return nil, nil
}

func (m *memBookingStore) Update(ctx context.Context, booking *bookings.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[booking.ID]; !ok {
		return bookings.ErrNotFound
	}
	copied := *booking
	m.rows[booking.ID] = &copied
	return nil
}

func (m *memBookingStore) UpdateStatus(ctx context.Context, id uuid.UUID, status bookings.Status, cancelledAt *time.Time) error {
	return nil
}

func (m *memBookingStore) CreateWithAvailabilityCheck(ctx context.Context, booking *bookings.Booking) error {
	m.put(booking)
	return nil
}

func (m *memBookingStore) GetDueForRelease(ctx context.Context, now time.Time, limit int) ([]bookings.Booking, error) {
	return nil, nil
}

func (m *memBookingStore) GetByPaymentStatus(ctx context.Context, status bookings.PaymentStatus) ([]bookings.Booking, error) {
	return nil, nil
}

func (m *memBookingStore) GetAll(ctx context.Context, query bookings.ListQuery) ([]bookings.Booking, int64, error) {
	return nil, 0, nil
}

// fakeEscrow records resolution calls and applies the booking transitions
// the real escrow service would
type fakeEscrow struct {
	store        *memBookingStore
	resolveCalls int
	failResolve  error
}

func (f *fakeEscrow) ProcessGuestPayment(ctx context.Context, bookingID, guestID uuid.UUID) (*escrow.PaymentResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEscrow) ReleaseFunds(ctx context.Context, bookingID uuid.UUID) (*ledger.EscrowTransaction, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEscrow) Refund(ctx context.Context, bookingID uuid.UUID, reason string) (*ledger.EscrowTransaction, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEscrow) ResolveDispute(ctx context.Context, bookingID uuid.UUID, decision escrow.Decision, note string) (*ledger.EscrowTransaction, error) {
	f.resolveCalls++
	if f.failResolve != nil {
		return nil, f.failResolve
	}

	booking, err := f.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.DisputeStatus.Frozen() {
		return nil, escrow.ErrDisputeNotOpen
	}

	txn := &ledger.EscrowTransaction{ID: uuid.New(), BookingID: bookingID, Note: note}
	if decision == escrow.DecisionRefundGuest {
		txn.Type = ledger.TypeRefund
		booking.Status = bookings.StatusCancelled
		booking.PaymentStatus = bookings.PaymentRefunded
	} else {
		txn.Type = ledger.TypeHostPayout
		booking.Status = bookings.StatusCompleted
		booking.PaymentStatus = bookings.PaymentReleased
	}
	txn.Status = ledger.StatusCompleted
	booking.DisputeStatus = bookings.DisputeResolved
	if err := f.store.Update(ctx, booking); err != nil {
		return nil, err
	}
	return txn, nil
}

func (f *fakeEscrow) CalculateReleaseDate(checkIn time.Time, policy listings.CancellationPolicy, duration, checkOutHour int) time.Time {
	return checkIn
}

func (f *fakeEscrow) GetEscrowTransactions(ctx context.Context, bookingID uuid.UUID) ([]ledger.EscrowTransaction, error) {
	return nil, nil
}

func (f *fakeEscrow) ListTransactions(ctx context.Context, limit, offset int) ([]ledger.EscrowTransaction, int64, error) {
	return nil, 0, nil
}

func (f *fakeEscrow) GetPlatformFinancials(ctx context.Context) (*escrow.PlatformFinancials, error) {
	return nil, nil
}

func disputedBooking() *bookings.Booking {
	return &bookings.Booking{
		ID:              uuid.New(),
		ListingID:       uuid.New(),
		GuestID:         uuid.New(),
		HostID:          uuid.New(),
		Status:          bookings.StatusConfirmed,
		PaymentStatus:   bookings.PaymentPaidEscrow,
		DisputeStatus:   bookings.DisputeNone,
		HandshakeStatus: bookings.HandshakeUnverified,
		TotalPrice:      100,
		HostPayout:      67.9,
	}
}

func newDisputeService(store *memBookingStore, esc escrow.Service) (Service, *memDisputes) {
	repo := newMemDisputes()
	svc := NewService(repo, store, esc, notifications.NewNoopPublisher(), logger.New())
	return svc, repo
}

func TestOpenDisputeFreezesBooking(t *testing.T) {
	store := newMemBookingStore()
	booking := disputedBooking()
	store.put(booking)
	svc, _ := newDisputeService(store, &fakeEscrow{store: store})
	ctx := context.Background()

	dispute, err := svc.Open(ctx, booking.ID, booking.GuestID, "space was not as described")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if dispute.Status != StatusOpen {
		t.Errorf("status = %v, want OPEN", dispute.Status)
	}

	frozen, _ := store.GetByID(ctx, booking.ID)
	if frozen.DisputeStatus != bookings.DisputeOpen {
		t.Errorf("booking disputeStatus = %v, want OPEN", frozen.DisputeStatus)
	}

	// A second dispute on the same booking is rejected
	if _, err := svc.Open(ctx, booking.ID, booking.HostID, "counter claim"); !errors.Is(err, ErrAlreadyDisputed) {
		t.Errorf("expected ErrAlreadyDisputed, got %v", err)
	}
}

func TestOpenDisputeValidation(t *testing.T) {
	store := newMemBookingStore()
	booking := disputedBooking()
	store.put(booking)
	svc, _ := newDisputeService(store, &fakeEscrow{store: store})
	ctx := context.Background()

	// Stranger cannot raise
	if _, err := svc.Open(ctx, booking.ID, uuid.New(), "not my booking"); !errors.Is(err, ErrNotParty) {
		t.Errorf("expected ErrNotParty, got %v", err)
	}

	// Unpaid booking cannot be disputed
	unpaid := disputedBooking()
	unpaid.PaymentStatus = ""
	store.put(unpaid)
	if _, err := svc.Open(ctx, unpaid.ID, unpaid.GuestID, "nothing in escrow"); !errors.Is(err, ErrNotDisputable) {
		t.Errorf("expected ErrNotDisputable, got %v", err)
	}
}

func TestStateMachineOnlyMovesForward(t *testing.T) {
	store := newMemBookingStore()
	booking := disputedBooking()
	store.put(booking)
	esc := &fakeEscrow{store: store}
	svc, _ := newDisputeService(store, esc)
	ctx := context.Background()

	dispute, err := svc.Open(ctx, booking.ID, booking.GuestID, "space was not as described")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	reviewed, err := svc.BeginReview(ctx, dispute.ID)
	if err != nil {
		t.Fatalf("BeginReview failed: %v", err)
	}
	if reviewed.Status != StatusInReview {
		t.Errorf("status = %v, want IN_REVIEW", reviewed.Status)
	}

	// IN_REVIEW -> IN_REVIEW is not a forward move
	if _, err := svc.BeginReview(ctx, dispute.ID); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition, got %v", err)
	}

	resolved, err := svc.Resolve(ctx, dispute.ID, escrow.DecisionReleaseToHost, "handshake verified on site", uuid.New())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != StatusResolved {
		t.Errorf("status = %v, want RESOLVED", resolved.Status)
	}
	if resolved.Decision != string(escrow.DecisionReleaseToHost) {
		t.Errorf("decision = %q, want RELEASE_TO_HOST", resolved.Decision)
	}

	// No moves out of RESOLVED
	if _, err := svc.BeginReview(ctx, dispute.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved, got %v", err)
	}
	if _, err := svc.Resolve(ctx, dispute.ID, escrow.DecisionRefundGuest, "second thoughts", uuid.New()); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved, got %v", err)
	}
	if esc.resolveCalls != 1 {
		t.Errorf("escrow resolution called %d times, want exactly 1", esc.resolveCalls)
	}
}

func TestResolveLeavesDisputeOpenWhenEscrowFails(t *testing.T) {
	store := newMemBookingStore()
	booking := disputedBooking()
	store.put(booking)
	esc := &fakeEscrow{store: store, failResolve: escrow.ErrAlreadyReleased}
	svc, repo := newDisputeService(store, esc)
	ctx := context.Background()

	dispute, err := svc.Open(ctx, booking.ID, booking.GuestID, "space was not as described")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := svc.Resolve(ctx, dispute.ID, escrow.DecisionRefundGuest, "note", uuid.New()); !errors.Is(err, escrow.ErrAlreadyReleased) {
		t.Fatalf("expected escrow error to surface, got %v", err)
	}

	// Dispute record untouched so the admin can retry
	unchanged, _ := repo.GetByID(ctx, dispute.ID)
	if unchanged.Status != StatusOpen {
		t.Errorf("dispute status = %v after failed resolution, want OPEN", unchanged.Status)
	}
}

func TestRecommendation(t *testing.T) {
	verified := disputedBooking()
	verified.HandshakeStatus = bookings.HandshakeVerified
	if got := Recommend(verified); got != RecommendReleaseToHost {
		t.Errorf("verified handshake recommendation = %v, want RELEASE_TO_HOST", got)
	}

	unverified := disputedBooking()
	if got := Recommend(unverified); got != RecommendRefundGuest {
		t.Errorf("unverified handshake recommendation = %v, want REFUND_GUEST", got)
	}
}

func TestGetSurfacesRecommendation(t *testing.T) {
	store := newMemBookingStore()
	booking := disputedBooking()
	booking.HandshakeStatus = bookings.HandshakeVerified
	store.put(booking)
	svc, _ := newDisputeService(store, &fakeEscrow{store: store})
	ctx := context.Background()

	dispute, err := svc.Open(ctx, booking.ID, booking.GuestID, "space was not as described")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	view, err := svc.Get(ctx, dispute.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if view.Recommendation != RecommendReleaseToHost {
		t.Errorf("recommendation = %v, want RELEASE_TO_HOST", view.Recommendation)
	}
	if !view.HandshakeBased {
		t.Error("expected handshake_based = true")
	}
}
