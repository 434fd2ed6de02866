package bookings

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking represents one reservation of a listing for a date (daily mode) or
// a set of hour slots on a date (hourly mode).
//
// The financial breakdown is frozen once a payment is recorded: every money
// movement after that point happens through new ledger entries, never by
// mutating these fields.
type Booking struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ListingID uuid.UUID `json:"listing_id" gorm:"type:uuid;not null;index"`
	GuestID   uuid.UUID `json:"guest_id" gorm:"type:uuid;not null;index"`
	HostID    uuid.UUID `json:"host_id" gorm:"type:uuid;not null;index"`

	// Temporal
	Date     time.Time  `json:"date" gorm:"type:date;not null;index"`
	Duration int        `json:"duration" gorm:"not null;default:1"`
	Hours    []int      `json:"hours,omitempty" gorm:"serializer:json"`
	Guests   int        `json:"guests" gorm:"not null;default:1"`
	GroupID  *uuid.UUID `json:"group_id,omitempty" gorm:"type:uuid;index"`

	// Financial breakdown (frozen after payment)
	BasePrice      float64 `json:"base_price" gorm:"not null"`
	ExtraGuestFees float64 `json:"extra_guest_fees" gorm:"not null;default:0"`
	ExtrasTotal    float64 `json:"extras_total" gorm:"not null;default:0"`
	Subtotal       float64 `json:"subtotal" gorm:"not null"`
	UserServiceFee float64 `json:"user_service_fee" gorm:"not null"`
	HostServiceFee float64 `json:"host_service_fee" gorm:"not null"`
	CautionFee     float64 `json:"caution_fee" gorm:"not null;default:0"`
	TotalPrice     float64 `json:"total_price" gorm:"not null"`
	HostPayout     float64 `json:"host_payout" gorm:"not null"`
	PlatformFee    float64 `json:"platform_fee" gorm:"not null"`

	// Lifecycle
	Status          Status          `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);index"`
	CautionStatus   CautionStatus   `json:"caution_status" gorm:"type:varchar(20);default:'HELD'"`
	DisputeStatus   DisputeStatus   `json:"dispute_status" gorm:"type:varchar(20);not null;default:'NONE';index"`
	HandshakeStatus HandshakeStatus `json:"handshake_status" gorm:"type:varchar(20);not null;default:'UNVERIFIED'"`
	HandshakeCode   string          `json:"-" gorm:"type:varchar(12)"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`

	EscrowReleaseDate *time.Time `json:"escrow_release_date,omitempty" gorm:"index"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`

	// Display-only cache of ledger entry ids; the ledger is authoritative
	TransactionIDs []string `json:"transaction_ids,omitempty" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentPaidEscrow
}

// IsHourly reports whether the booking occupies explicit hour slots rather
// than whole days
func (b *Booking) IsHourly() bool {
	return len(b.Hours) > 0
}

// ReleaseDue reports whether the scheduler may pay out the host at the given
// instant. Bookings under a live dispute are frozen.
func (b *Booking) ReleaseDue(now time.Time) bool {
	if b.PaymentStatus != PaymentPaidEscrow {
		return false
	}
	if b.DisputeStatus != DisputeNone {
		return false
	}
	return b.EscrowReleaseDate != nil && !b.EscrowReleaseDate.After(now)
}

// PricingConsistent verifies the creation-time invariant
// totalPrice = subtotal + userServiceFee + cautionFee
func (b *Booking) PricingConsistent() bool {
	const epsilon = 0.005
	diff := b.TotalPrice - (b.Subtotal + b.UserServiceFee + b.CautionFee)
	return diff < epsilon && diff > -epsilon
}

// AppendTransactionID adds a ledger entry id to the display cache, skipping
// duplicates
func (b *Booking) AppendTransactionID(id string) {
	for _, existing := range b.TransactionIDs {
		if existing == id {
			return
		}
	}
	b.TransactionIDs = append(b.TransactionIDs, id)
}
