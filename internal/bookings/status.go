package bookings

// Status represents the booking lifecycle state
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further lifecycle transitions are allowed
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

// PaymentStatus tracks where the guest's money currently sits
type PaymentStatus string

const (
	PaymentPaidEscrow PaymentStatus = "PAID_ESCROW"
	PaymentReleased   PaymentStatus = "RELEASED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentPaidEscrow, PaymentReleased, PaymentRefunded:
		return true
	}
	return false
}

// CautionStatus tracks the refundable security deposit
type CautionStatus string

const (
	CautionHeld     CautionStatus = "HELD"
	CautionReturned CautionStatus = "RETURNED"
)

// DisputeStatus mirrors the dispute state machine on the booking itself so
// the scheduler can filter frozen bookings without a join
type DisputeStatus string

const (
	DisputeNone     DisputeStatus = "NONE"
	DisputeOpen     DisputeStatus = "OPEN"
	DisputeInReview DisputeStatus = "IN_REVIEW"
	DisputeResolved DisputeStatus = "RESOLVED"
)

func (d DisputeStatus) IsValid() bool {
	switch d {
	case DisputeNone, DisputeOpen, DisputeInReview, DisputeResolved:
		return true
	}
	return false
}

// Frozen reports whether the booking is excluded from scheduler releases
func (d DisputeStatus) Frozen() bool {
	return d == DisputeOpen || d == DisputeInReview
}

// HandshakeStatus records whether the host confirmed the guest's access code
type HandshakeStatus string

const (
	HandshakeUnverified HandshakeStatus = "UNVERIFIED"
	HandshakeVerified   HandshakeStatus = "VERIFIED"
)
