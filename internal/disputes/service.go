package disputes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stayvault/internal/bookings"
	"stayvault/internal/escrow"
	"stayvault/internal/notifications"
	"stayvault/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotParty        = errors.New("only the guest or host of the booking can raise a dispute")
	ErrAlreadyDisputed = errors.New("an active dispute already exists for this booking")
	ErrNotDisputable   = errors.New("only paid bookings can be disputed")
	ErrAlreadyResolved = errors.New("dispute is already resolved")
	ErrBadTransition   = errors.New("dispute state machine only moves forward")
)

// DisputeView pairs a dispute with the advisory recommendation for the
// reviewing admin
type DisputeView struct {
	Dispute        *Dispute       `json:"dispute"`
	Recommendation Recommendation `json:"recommendation"`
	HandshakeBased bool           `json:"handshake_based"`
}

// Service drives the dispute state machine. Money movement is delegated to
// the escrow service; this package never touches the ledger directly.
type Service interface {
	// Open raises a dispute and freezes the booking from the scheduler
	Open(ctx context.Context, bookingID, raisedBy uuid.UUID, reason string) (*Dispute, error)

	// BeginReview moves OPEN -> IN_REVIEW
	BeginReview(ctx context.Context, disputeID uuid.UUID) (*Dispute, error)

	// Resolve applies the explicit admin decision. The recommendation is
	// advisory only; the system never auto-resolves.
	Resolve(ctx context.Context, disputeID uuid.UUID, decision escrow.Decision, note string, resolvedBy uuid.UUID) (*Dispute, error)

	Get(ctx context.Context, disputeID uuid.UUID) (*DisputeView, error)
	List(ctx context.Context, status Status, limit, offset int) ([]Dispute, int64, error)
}

type service struct {
	repo        Repository
	bookingRepo bookings.Repository
	escrow      escrow.Service
	publisher   notifications.Publisher
	log         *logger.Logger
}

func NewService(repo Repository, bookingRepo bookings.Repository, escrowService escrow.Service, publisher notifications.Publisher, log *logger.Logger) Service {
	return &service{
		repo:        repo,
		bookingRepo: bookingRepo,
		escrow:      escrowService,
		publisher:   publisher,
		log:         log,
	}
}

func (s *service) Open(ctx context.Context, bookingID, raisedBy uuid.UUID, reason string) (*Dispute, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.GuestID != raisedBy && booking.HostID != raisedBy {
		return nil, ErrNotParty
	}
	if booking.PaymentStatus != bookings.PaymentPaidEscrow {
		return nil, ErrNotDisputable
	}
	if booking.DisputeStatus.Frozen() {
		return nil, ErrAlreadyDisputed
	}
	if _, err := s.repo.GetActiveByBookingID(ctx, bookingID); err == nil {
		return nil, ErrAlreadyDisputed
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	dispute := &Dispute{
		BookingID: bookingID,
		RaisedBy:  raisedBy,
		Reason:    reason,
		Status:    StatusOpen,
	}
	if err := s.repo.Create(ctx, dispute); err != nil {
		return nil, fmt.Errorf("failed to create dispute: %w", err)
	}

	// Freeze the booking so the release sweep skips it
	booking.DisputeStatus = bookings.DisputeOpen
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("dispute created but booking freeze failed: %w", err)
	}

	s.log.InfoWithContext(ctx, "Dispute opened", map[string]interface{}{
		"dispute_id": dispute.ID.String(),
		"booking_id": bookingID.String(),
		"raised_by":  raisedBy.String(),
	})
	s.publish(ctx, notifications.NewEvent(notifications.EventDisputeOpened, bookingID).
		WithParties(&booking.GuestID, &booking.HostID).
		WithReason(reason))

	return dispute, nil
}

func (s *service) BeginReview(ctx context.Context, disputeID uuid.UUID) (*Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.IsResolved() {
		return nil, ErrAlreadyResolved
	}
	if !dispute.Status.CanTransitionTo(StatusInReview) {
		return nil, ErrBadTransition
	}

	dispute.Status = StatusInReview
	if err := s.repo.Update(ctx, dispute); err != nil {
		return nil, fmt.Errorf("failed to update dispute: %w", err)
	}

	booking, err := s.bookingRepo.GetByID(ctx, dispute.BookingID)
	if err != nil {
		return nil, err
	}
	booking.DisputeStatus = bookings.DisputeInReview
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to update booking dispute status: %w", err)
	}

	return dispute, nil
}

func (s *service) Resolve(ctx context.Context, disputeID uuid.UUID, decision escrow.Decision, note string, resolvedBy uuid.UUID) (*Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.IsResolved() {
		return nil, ErrAlreadyResolved
	}

	// The escrow service re-checks the freeze, moves the money, transitions
	// the booking, and closes booking.disputeStatus atomically per booking
	txn, err := s.escrow.ResolveDispute(ctx, dispute.BookingID, decision, note)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dispute.Status = StatusResolved
	dispute.Decision = string(decision)
	dispute.ResolutionNote = note
	dispute.ResolvedBy = &resolvedBy
	dispute.ResolvedAt = &now
	if err := s.repo.Update(ctx, dispute); err != nil {
		return nil, fmt.Errorf("money moved (transaction %s) but dispute record update failed: %w", txn.ID, err)
	}

	s.log.LogDisputeResolved(ctx, dispute.BookingID.String(), string(decision), resolvedBy.String())
	return dispute, nil
}

func (s *service) Get(ctx context.Context, disputeID uuid.UUID) (*DisputeView, error) {
	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, dispute.BookingID)
	if err != nil {
		return nil, err
	}

	return &DisputeView{
		Dispute:        dispute,
		Recommendation: Recommend(booking),
		HandshakeBased: booking.HandshakeStatus == bookings.HandshakeVerified,
	}, nil
}

func (s *service) List(ctx context.Context, status Status, limit, offset int) ([]Dispute, int64, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// Recommend surfaces the evidence-based lean: a verified handshake is strong
// evidence the guest was granted entry, so the lean is paying the host;
// otherwise the lean is refunding the guest. Advisory only.
func Recommend(booking *bookings.Booking) Recommendation {
	if booking.HandshakeStatus == bookings.HandshakeVerified {
		return RecommendReleaseToHost
	}
	return RecommendRefundGuest
}

func (s *service) publish(ctx context.Context, event *notifications.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.ErrorWithContext(ctx, "Failed to publish event", err, map[string]interface{}{
			"event_type": string(event.Type),
			"booking_id": event.BookingID.String(),
		})
	}
}
