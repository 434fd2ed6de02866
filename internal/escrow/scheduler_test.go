package escrow

import (
	"context"
	"testing"
	"time"

	"stayvault/internal/bookings"
	"stayvault/internal/ledger"
	"stayvault/pkg/logger"

	"github.com/google/uuid"
)

func newTestScheduler(svc Service, store *memBookings) *Scheduler {
	return NewScheduler(svc, store, nil, SchedulerConfig{
		Interval:  time.Minute,
		BatchSize: 100,
		LockTTL:   time.Minute,
	}, logger.New())
}

func payAndBackdate(t *testing.T, svc Service, store *memBookings, booking *bookings.Booking, age time.Duration) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.ProcessGuestPayment(ctx, booking.ID, booking.GuestID); err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	b, err := store.GetByID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("booking lookup failed: %v", err)
	}
	past := time.Now().Add(-age)
	b.EscrowReleaseDate = &past
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("backdate failed: %v", err)
	}
}

func TestSweepReleasesDueBooking(t *testing.T) {
	led := newMemLedger()
	store := newMemBookings()
	booking := paidBooking()
	store.put(booking)
	svc := newEscrowService(led, store, NewMockGateway())
	scheduler := newTestScheduler(svc, store)
	ctx := context.Background()

	// Pay 100, push the release date 25h into the past
	payAndBackdate(t, svc, store, booking, 25*time.Hour)

	var releasedID uuid.UUID
	var releasedAmount float64
	scheduler.SetReleaseCallback(func(bookingID uuid.UUID, amount float64) {
		releasedID = bookingID
		releasedAmount = amount
	})

	result, err := scheduler.Sweep(ctx, time.Now())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Released != 1 {
		t.Fatalf("released = %d, want 1", result.Released)
	}
	if releasedID != booking.ID || releasedAmount != 67.9 {
		t.Errorf("callback got (%v, %v), want (%v, 67.9)", releasedID, releasedAmount, booking.ID)
	}

	if got := led.countCompleted(booking.ID, ledger.TypeHostPayout); got != 1 {
		t.Errorf("completed HOST_PAYOUT rows = %d, want exactly 1", got)
	}
	updated, _ := store.GetByID(ctx, booking.ID)
	if updated.PaymentStatus != bookings.PaymentReleased {
		t.Errorf("paymentStatus = %v, want RELEASED", updated.PaymentStatus)
	}
}

func TestSweepIdempotent(t *testing.T) {
	led := newMemLedger()
	store := newMemBookings()
	booking := paidBooking()
	store.put(booking)
	svc := newEscrowService(led, store, NewMockGateway())
	scheduler := newTestScheduler(svc, store)
	ctx := context.Background()

	payAndBackdate(t, svc, store, booking, 25*time.Hour)

	now := time.Now()
	first, err := scheduler.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	second, err := scheduler.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}

	if first.Released != 1 {
		t.Errorf("first sweep released %d, want 1", first.Released)
	}
	if second.Released != 0 {
		t.Errorf("second sweep released %d, want 0", second.Released)
	}
	if got := led.countCompleted(booking.ID, ledger.TypeHostPayout, ledger.TypeRefund); got != 1 {
		t.Fatalf("completed release rows = %d after double sweep, want exactly 1", got)
	}
}

func TestSweepSkipsDisputedBooking(t *testing.T) {
	led := newMemLedger()
	store := newMemBookings()
	booking := paidBooking()
	store.put(booking)
	svc := newEscrowService(led, store, NewMockGateway())
	scheduler := newTestScheduler(svc, store)
	ctx := context.Background()

	payAndBackdate(t, svc, store, booking, 25*time.Hour)

	// Open dispute freezes the booking
	b, _ := store.GetByID(ctx, booking.ID)
	b.DisputeStatus = bookings.DisputeOpen
	_ = store.Update(ctx, b)

	result, err := scheduler.Sweep(ctx, time.Now())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Candidates != 0 || result.Released != 0 {
		t.Fatalf("sweep touched a disputed booking: %+v", result)
	}
	if got := led.countCompleted(booking.ID, ledger.TypeHostPayout); got != 0 {
		t.Errorf("disputed booking got %d payouts, want 0", got)
	}
}

func TestDisputeRefundThenSweepDoesNotPayHost(t *testing.T) {
	led := newMemLedger()
	store := newMemBookings()
	booking := paidBooking()
	store.put(booking)
	svc := newEscrowService(led, store, NewMockGateway())
	scheduler := newTestScheduler(svc, store)
	ctx := context.Background()

	payAndBackdate(t, svc, store, booking, 25*time.Hour)

	b, _ := store.GetByID(ctx, booking.ID)
	b.DisputeStatus = bookings.DisputeOpen
	_ = store.Update(ctx, b)

	txn, err := svc.ResolveDispute(ctx, booking.ID, DecisionRefundGuest, "no access granted")
	if err != nil {
		t.Fatalf("ResolveDispute failed: %v", err)
	}
	if txn.Type != ledger.TypeRefund {
		t.Fatalf("resolution produced %v, want REFUND", txn.Type)
	}

	resolved, _ := store.GetByID(ctx, booking.ID)
	if resolved.Status != bookings.StatusCancelled {
		t.Errorf("status = %v, want CANCELLED", resolved.Status)
	}
	if resolved.DisputeStatus != bookings.DisputeResolved {
		t.Errorf("disputeStatus = %v, want RESOLVED", resolved.DisputeStatus)
	}

	// The sweep afterward must not also release funds to the host
	result, err := scheduler.Sweep(ctx, time.Now())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Released != 0 {
		t.Errorf("sweep released %d payouts after a refund, want 0", result.Released)
	}
	if got := led.countCompleted(booking.ID, ledger.TypeHostPayout); got != 0 {
		t.Errorf("host got %d payouts after refund, want 0", got)
	}
	if got := led.countCompleted(booking.ID, ledger.TypeHostPayout, ledger.TypeRefund); got != 1 {
		t.Errorf("completed release rows = %d, want exactly the one refund", got)
	}
}

func TestSweepSkipsFailingBookingAndContinues(t *testing.T) {
	led := newMemLedger()
	store := newMemBookings()
	svc := newEscrowService(led, store, NewMockGateway())
	scheduler := newTestScheduler(svc, store)
	ctx := context.Background()

	healthy := paidBooking()
	broken := paidBooking()
	store.put(healthy)
	store.put(broken)
	payAndBackdate(t, svc, store, healthy, 25*time.Hour)
	payAndBackdate(t, svc, store, broken, 25*time.Hour)

	// Sabotage one booking: a completed refund already on the ledger makes
	// its release violate the single-release invariant mid-sweep
	refund := &ledger.EscrowTransaction{
		BookingID: broken.ID,
		Type:      ledger.TypeRefund,
		Status:    ledger.StatusPending,
		Amount:    broken.TotalPrice,
	}
	if err := led.Append(ctx, refund); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := led.MarkCompleted(ctx, refund.ID, "re_manual"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	result, err := scheduler.Sweep(ctx, time.Now())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Candidates != 2 {
		t.Errorf("candidates = %d, want 2", result.Candidates)
	}
	if result.Released != 1 {
		t.Errorf("released = %d, want the healthy booking only", result.Released)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if got := led.countCompleted(healthy.ID, ledger.TypeHostPayout); got != 1 {
		t.Errorf("healthy booking payouts = %d, want 1", got)
	}
}
