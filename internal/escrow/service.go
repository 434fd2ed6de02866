package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stayvault/internal/bookings"
	"stayvault/internal/ledger"
	"stayvault/internal/listings"
	"stayvault/internal/notifications"
	"stayvault/internal/shared/config"
	"stayvault/pkg/locks"
	"stayvault/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrAlreadyPaid      = errors.New("a completed guest payment already exists for this booking")
	ErrAlreadyReleased  = errors.New("funds for this booking were already released or refunded")
	ErrNotPaid          = errors.New("booking has no funds in escrow")
	ErrBookingCancelled = errors.New("booking is cancelled")
	ErrDisputeNotOpen   = errors.New("dispute must be open or in review")
	ErrBadDecision      = errors.New("decision must be REFUND_GUEST or RELEASE_TO_HOST")
	ErrPricingBroken    = errors.New("booking pricing violates the total-price invariant")
)

// Decision is the explicit admin choice when resolving a dispute
type Decision string

const (
	DecisionRefundGuest   Decision = "REFUND_GUEST"
	DecisionReleaseToHost Decision = "RELEASE_TO_HOST"
)

// PlatformFinancials is a read-only projection replayed from the ledger.
// It is recomputed on every call and never independently mutated.
type PlatformFinancials struct {
	TotalEscrowHeld    float64   `json:"total_escrow_held"`
	TotalReleased      float64   `json:"total_released"`
	TotalRefunded      float64   `json:"total_refunded"`
	TotalCollected     float64   `json:"total_collected"`
	TotalRevenue       float64   `json:"total_revenue"`
	PendingPayouts     float64   `json:"pending_payouts"`
	PendingPayoutCount int       `json:"pending_payout_count"`
	CompletedPayments  int       `json:"completed_payments"`
	CompletedReleases  int       `json:"completed_releases"`
	CompletedRefunds   int       `json:"completed_refunds"`
	ComputedAt         time.Time `json:"computed_at"`
}

// ListingSource is the narrow slice of the listings service the escrow
// engine needs for release-date computation
type ListingSource interface {
	GetListing(ctx context.Context, id uuid.UUID) (*listings.Listing, error)
}

// PaymentResult reports a recorded guest payment
type PaymentResult struct {
	Booking     *bookings.Booking         `json:"booking"`
	Transaction *ledger.EscrowTransaction `json:"transaction"`
	ReleaseDate time.Time                 `json:"release_date"`
}

// Service is the only component permitted to append to the ledger. All
// ledger-mutating operations for one booking are serialized through a keyed
// mutex so concurrent sweeps and admin actions cannot break the single-
// payment and single-release invariants.
type Service interface {
	ProcessGuestPayment(ctx context.Context, bookingID, guestID uuid.UUID) (*PaymentResult, error)
	ReleaseFunds(ctx context.Context, bookingID uuid.UUID) (*ledger.EscrowTransaction, error)
	Refund(ctx context.Context, bookingID uuid.UUID, reason string) (*ledger.EscrowTransaction, error)
	ResolveDispute(ctx context.Context, bookingID uuid.UUID, decision Decision, note string) (*ledger.EscrowTransaction, error)

	// CalculateReleaseDate is pure and reproducible for auditing
	CalculateReleaseDate(checkIn time.Time, policy listings.CancellationPolicy, duration, checkOutHour int) time.Time

	GetEscrowTransactions(ctx context.Context, bookingID uuid.UUID) ([]ledger.EscrowTransaction, error)
	ListTransactions(ctx context.Context, limit, offset int) ([]ledger.EscrowTransaction, int64, error)
	GetPlatformFinancials(ctx context.Context) (*PlatformFinancials, error)
}

type service struct {
	ledgerRepo   ledger.Repository
	bookingRepo  bookings.Repository
	listingSrc   ListingSource
	gateway      PaymentGateway
	publisher    notifications.Publisher
	bookingLocks *locks.KeyedMutex
	cfg          config.EscrowConfig
	log          *logger.Logger
}

func NewService(ledgerRepo ledger.Repository, bookingRepo bookings.Repository, listingSrc ListingSource, gateway PaymentGateway, publisher notifications.Publisher, cfg config.EscrowConfig, log *logger.Logger) Service {
	return &service{
		ledgerRepo:   ledgerRepo,
		bookingRepo:  bookingRepo,
		listingSrc:   listingSrc,
		gateway:      gateway,
		publisher:    publisher,
		bookingLocks: locks.NewKeyedMutex(),
		cfg:          cfg,
		log:          log,
	}
}

// ProcessGuestPayment charges the guest for booking.totalPrice and records a
// GUEST_PAYMENT row. A second call for the same booking fails before any
// mutation. A gateway rejection leaves a FAILED row and an unchanged
// booking, so the payment is retryable; a gateway timeout leaves the row
// PENDING rather than falsely COMPLETED.
func (s *service) ProcessGuestPayment(ctx context.Context, bookingID, guestID uuid.UUID) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.bookingLocks.WithLock(bookingID.String(), func() error {
		booking, err := s.bookingRepo.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.IsCancelled() {
			return ErrBookingCancelled
		}
		if !booking.PricingConsistent() {
			return ErrPricingBroken
		}

		paid, err := s.ledgerRepo.HasCompleted(ctx, bookingID, ledger.TypeGuestPayment)
		if err != nil {
			return fmt.Errorf("failed to check payment history: %w", err)
		}
		if paid {
			return ErrAlreadyPaid
		}

		txn := &ledger.EscrowTransaction{
			BookingID:  bookingID,
			Type:       ledger.TypeGuestPayment,
			Status:     ledger.StatusPending,
			Amount:     booking.TotalPrice,
			Currency:   "USD",
			FromUserID: &guestID,
		}
		if err := s.ledgerRepo.Append(ctx, txn); err != nil {
			return fmt.Errorf("failed to append payment transaction: %w", err)
		}

		gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		defer cancel()
		ref, err := s.gateway.Charge(gatewayCtx, guestID.String(), booking.TotalPrice, txn.Currency)
		if err != nil {
			if errors.Is(err, ErrGatewayTimeout) || errors.Is(err, context.DeadlineExceeded) {
				// Outcome unknown: the row stays PENDING for reconciliation
				s.log.LogGatewayFailure(ctx, bookingID.String(), "charge", err)
				return fmt.Errorf("payment outcome unknown: %w", err)
			}
			if markErr := s.ledgerRepo.MarkFailed(ctx, txn.ID, err.Error()); markErr != nil {
				s.log.ErrorWithContext(ctx, "Failed to mark transaction failed", markErr, map[string]interface{}{
					"transaction_id": txn.ID.String(),
				})
			}
			s.log.LogGatewayFailure(ctx, bookingID.String(), "charge", err)
			return fmt.Errorf("payment authorization failed: %w", err)
		}

		if err := s.ledgerRepo.MarkCompleted(ctx, txn.ID, ref); err != nil {
			return fmt.Errorf("failed to complete payment transaction: %w", err)
		}
		txn.MarkCompleted(ref)

		releaseDate := s.releaseDateFor(ctx, booking)
		booking.PaymentStatus = bookings.PaymentPaidEscrow
		booking.Status = bookings.StatusConfirmed
		booking.EscrowReleaseDate = &releaseDate
		booking.AppendTransactionID(txn.ID.String())
		if err := s.bookingRepo.Update(ctx, booking); err != nil {
			return fmt.Errorf("payment recorded but booking update failed: %w", err)
		}

		s.log.LogPaymentRecorded(ctx, bookingID.String(), txn.ID.String(), txn.Amount)
		s.publish(ctx, notifications.NewEvent(notifications.EventPaymentRecorded, bookingID).
			WithTransaction(txn.ID, txn.Amount, txn.Currency).
			WithParties(&booking.GuestID, &booking.HostID))

		result = &PaymentResult{Booking: booking, Transaction: txn, ReleaseDate: releaseDate}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReleaseFunds pays booking.hostPayout to the host. The single-release
// invariant holds under concurrent callers: the ledger guard runs inside the
// per-booking lock and the partial unique index backstops other processes.
func (s *service) ReleaseFunds(ctx context.Context, bookingID uuid.UUID) (*ledger.EscrowTransaction, error) {
	var txn *ledger.EscrowTransaction
	err := s.bookingLocks.WithLock(bookingID.String(), func() error {
		var err error
		txn, err = s.release(ctx, bookingID, "")
		return err
	})
	return txn, err
}

func (s *service) release(ctx context.Context, bookingID uuid.UUID, note string) (*ledger.EscrowTransaction, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus != bookings.PaymentPaidEscrow {
		return nil, ErrNotPaid
	}

	released, err := s.ledgerRepo.HasCompleted(ctx, bookingID, ledger.TypeHostPayout, ledger.TypeRefund)
	if err != nil {
		return nil, fmt.Errorf("failed to check release history: %w", err)
	}
	if released {
		return nil, ErrAlreadyReleased
	}

	txn := &ledger.EscrowTransaction{
		BookingID: bookingID,
		Type:      ledger.TypeHostPayout,
		Status:    ledger.StatusPending,
		Amount:    booking.HostPayout,
		Currency:  "USD",
		ToUserID:  &booking.HostID,
		Note:      note,
	}
	if err := s.ledgerRepo.Append(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to append payout transaction: %w", err)
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	ref, err := s.gateway.Transfer(gatewayCtx, booking.HostID.String(), booking.HostPayout, txn.Currency)
	if err != nil {
		if errors.Is(err, ErrGatewayTimeout) || errors.Is(err, context.DeadlineExceeded) {
			s.log.LogGatewayFailure(ctx, bookingID.String(), "transfer", err)
			return nil, fmt.Errorf("payout outcome unknown: %w", err)
		}
		if markErr := s.ledgerRepo.MarkFailed(ctx, txn.ID, err.Error()); markErr != nil {
			s.log.ErrorWithContext(ctx, "Failed to mark transaction failed", markErr, map[string]interface{}{
				"transaction_id": txn.ID.String(),
			})
		}
		s.log.LogGatewayFailure(ctx, bookingID.String(), "transfer", err)
		return nil, fmt.Errorf("payout transfer failed: %w", err)
	}

	if err := s.ledgerRepo.MarkCompleted(ctx, txn.ID, ref); err != nil {
		return nil, fmt.Errorf("failed to complete payout transaction: %w", err)
	}
	txn.MarkCompleted(ref)

	booking.PaymentStatus = bookings.PaymentReleased
	booking.Status = bookings.StatusCompleted
	booking.CautionStatus = bookings.CautionReturned
	booking.AppendTransactionID(txn.ID.String())
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("payout recorded but booking update failed: %w", err)
	}

	s.log.LogPayoutReleased(ctx, bookingID.String(), txn.ID.String(), txn.Amount)
	s.publish(ctx, notifications.NewEvent(notifications.EventPayoutReleased, bookingID).
		WithTransaction(txn.ID, txn.Amount, txn.Currency).
		WithParties(&booking.GuestID, &booking.HostID))

	return txn, nil
}

// Refund returns booking.totalPrice to the guest under the same
// single-release guard as ReleaseFunds.
func (s *service) Refund(ctx context.Context, bookingID uuid.UUID, reason string) (*ledger.EscrowTransaction, error) {
	var txn *ledger.EscrowTransaction
	err := s.bookingLocks.WithLock(bookingID.String(), func() error {
		var err error
		txn, err = s.refund(ctx, bookingID, reason, "")
		return err
	})
	return txn, err
}

func (s *service) refund(ctx context.Context, bookingID uuid.UUID, reason, note string) (*ledger.EscrowTransaction, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus != bookings.PaymentPaidEscrow {
		return nil, ErrNotPaid
	}

	released, err := s.ledgerRepo.HasCompleted(ctx, bookingID, ledger.TypeHostPayout, ledger.TypeRefund)
	if err != nil {
		return nil, fmt.Errorf("failed to check release history: %w", err)
	}
	if released {
		return nil, ErrAlreadyReleased
	}

	txn := &ledger.EscrowTransaction{
		BookingID: bookingID,
		Type:      ledger.TypeRefund,
		Status:    ledger.StatusPending,
		Amount:    booking.TotalPrice,
		Currency:  "USD",
		ToUserID:  &booking.GuestID,
		Note:      note,
	}
	if err := s.ledgerRepo.Append(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to append refund transaction: %w", err)
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	ref, err := s.gateway.RefundTransfer(gatewayCtx, booking.GuestID.String(), booking.TotalPrice, txn.Currency)
	if err != nil {
		if errors.Is(err, ErrGatewayTimeout) || errors.Is(err, context.DeadlineExceeded) {
			s.log.LogGatewayFailure(ctx, bookingID.String(), "refund", err)
			return nil, fmt.Errorf("refund outcome unknown: %w", err)
		}
		if markErr := s.ledgerRepo.MarkFailed(ctx, txn.ID, err.Error()); markErr != nil {
			s.log.ErrorWithContext(ctx, "Failed to mark transaction failed", markErr, map[string]interface{}{
				"transaction_id": txn.ID.String(),
			})
		}
		s.log.LogGatewayFailure(ctx, bookingID.String(), "refund", err)
		return nil, fmt.Errorf("refund transfer failed: %w", err)
	}

	if err := s.ledgerRepo.MarkCompleted(ctx, txn.ID, ref); err != nil {
		return nil, fmt.Errorf("failed to complete refund transaction: %w", err)
	}
	txn.MarkCompleted(ref)

	now := time.Now()
	booking.PaymentStatus = bookings.PaymentRefunded
	booking.Status = bookings.StatusCancelled
	booking.CancelledAt = &now
	booking.CautionStatus = bookings.CautionReturned
	booking.AppendTransactionID(txn.ID.String())
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("refund recorded but booking update failed: %w", err)
	}

	s.log.LogRefundIssued(ctx, bookingID.String(), txn.ID.String(), txn.Amount, reason)
	s.publish(ctx, notifications.NewEvent(notifications.EventRefundIssued, bookingID).
		WithTransaction(txn.ID, txn.Amount, txn.Currency).
		WithParties(&booking.GuestID, &booking.HostID).
		WithReason(reason))

	return txn, nil
}

// ResolveDispute dispatches the explicit admin decision to a refund or an
// accelerated payout. It requires a live dispute, annotates the produced
// transaction with the admin note, and moves disputeStatus to RESOLVED.
// Ledger append, booking transition, and dispute closure happen under one
// per-booking lock so concurrent sweeps observe either all or nothing.
func (s *service) ResolveDispute(ctx context.Context, bookingID uuid.UUID, decision Decision, note string) (*ledger.EscrowTransaction, error) {
	var txn *ledger.EscrowTransaction
	err := s.bookingLocks.WithLock(bookingID.String(), func() error {
		booking, err := s.bookingRepo.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !booking.DisputeStatus.Frozen() {
			return ErrDisputeNotOpen
		}

		switch decision {
		case DecisionRefundGuest:
			txn, err = s.refund(ctx, bookingID, "dispute resolution", note)
		case DecisionReleaseToHost:
			txn, err = s.release(ctx, bookingID, note)
		default:
			return ErrBadDecision
		}
		if err != nil {
			return err
		}

		// refund/release rewrote the booking; reload before closing the
		// dispute so their transitions are kept
		booking, err = s.bookingRepo.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		booking.DisputeStatus = bookings.DisputeResolved
		if err := s.bookingRepo.Update(ctx, booking); err != nil {
			return fmt.Errorf("resolution recorded but dispute closure failed: %w", err)
		}

		s.publish(ctx, notifications.NewEvent(notifications.EventDisputeResolved, bookingID).
			WithTransaction(txn.ID, txn.Amount, txn.Currency).
			WithDecision(string(decision)).
			WithReason(note))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CalculateReleaseDate computes the instant after which held funds may be
// paid out: the checkout instant plus the policy's hold window. Pure.
func (s *service) CalculateReleaseDate(checkIn time.Time, policy listings.CancellationPolicy, duration, checkOutHour int) time.Time {
	if duration < 1 {
		duration = 1
	}
	checkOutDay := checkIn.AddDate(0, 0, duration)
	checkOut := time.Date(checkOutDay.Year(), checkOutDay.Month(), checkOutDay.Day(),
		checkOutHour, 0, 0, 0, checkOutDay.Location())

	hold := s.cfg.FlexibleHold
	switch policy {
	case listings.PolicyModerate:
		hold = s.cfg.ModerateHold
	case listings.PolicyStrict:
		hold = s.cfg.StrictHold
	}
	return checkOut.Add(hold)
}

func (s *service) releaseDateFor(ctx context.Context, booking *bookings.Booking) time.Time {
	policy := listings.PolicyFlexible
	checkOutHour := 11
	// Policy lives on the listing; fall back to the default hold if the
	// listing is gone
	if s.listingSrc != nil {
		if l, err := s.listingSrc.GetListing(ctx, booking.ListingID); err == nil {
			policy = l.CancellationPolicy
			checkOutHour = l.CheckOutHour
		}
	}
	return s.CalculateReleaseDate(booking.Date, policy, booking.Duration, checkOutHour)
}

func (s *service) GetEscrowTransactions(ctx context.Context, bookingID uuid.UUID) ([]ledger.EscrowTransaction, error) {
	return s.ledgerRepo.GetByBookingID(ctx, bookingID)
}

func (s *service) ListTransactions(ctx context.Context, limit, offset int) ([]ledger.EscrowTransaction, int64, error) {
	return s.ledgerRepo.ListAll(ctx, limit, offset)
}

// GetPlatformFinancials replays the full ledger into the platform's money
// position. held = collected - released - refunded by construction, so the
// aggregate can never drift from the ledger.
func (s *service) GetPlatformFinancials(ctx context.Context) (*PlatformFinancials, error) {
	txns, err := s.ledgerRepo.GetAllCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to replay ledger: %w", err)
	}

	fin := &PlatformFinancials{ComputedAt: time.Now()}
	for i := range txns {
		txn := &txns[i]
		switch txn.Type {
		case ledger.TypeGuestPayment:
			fin.TotalCollected += txn.Amount
			fin.CompletedPayments++
		case ledger.TypeHostPayout:
			fin.TotalReleased += txn.Amount
			fin.CompletedReleases++
		case ledger.TypeRefund:
			fin.TotalRefunded += txn.Amount
			fin.CompletedRefunds++
		case ledger.TypeServiceFee:
			fin.TotalRevenue += txn.Amount
		}
		fin.TotalEscrowHeld += txn.SignedAmount()
	}

	// Fee revenue materializes when a booking's funds release: the platform
	// keeps totalPrice minus hostPayout minus the returned caution. Refunded
	// bookings return everything and contribute nothing.
	released, err := s.bookingRepo.GetByPaymentStatus(ctx, bookings.PaymentReleased)
	if err != nil {
		return nil, fmt.Errorf("failed to load released bookings: %w", err)
	}
	for i := range released {
		fin.TotalRevenue += released[i].PlatformFee
	}

	pending, err := s.bookingRepo.GetByPaymentStatus(ctx, bookings.PaymentPaidEscrow)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pending payouts: %w", err)
	}
	for i := range pending {
		fin.PendingPayouts += pending[i].HostPayout
	}
	fin.PendingPayoutCount = len(pending)

	return fin, nil
}

func (s *service) publish(ctx context.Context, event *notifications.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// Event loss is tolerable; ledger and booking state are authoritative
		s.log.ErrorWithContext(ctx, "Failed to publish event", err, map[string]interface{}{
			"event_type": string(event.Type),
			"booking_id": event.BookingID.String(),
		})
	}
}
