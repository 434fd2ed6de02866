package disputes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the dispute state machine: NONE is represented by the absence
// of a dispute row; a created dispute starts OPEN and only moves forward.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusInReview Status = "IN_REVIEW"
	StatusResolved Status = "RESOLVED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInReview, StatusResolved:
		return true
	}
	return false
}

// CanTransitionTo permits only forward moves
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusOpen:
		return next == StatusInReview || next == StatusResolved
	case StatusInReview:
		return next == StatusResolved
	}
	return false
}

// Recommendation is the advisory lean surfaced to the reviewing admin
type Recommendation string

const (
	RecommendReleaseToHost Recommendation = "RELEASE_TO_HOST"
	RecommendRefundGuest   Recommendation = "REFUND_GUEST"
)

// Dispute is a flagged booking awaiting human adjudication
type Dispute struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BookingID uuid.UUID `json:"booking_id" gorm:"type:uuid;not null;uniqueIndex:uniq_open_dispute,where:status <> 'RESOLVED'"`
	RaisedBy  uuid.UUID `json:"raised_by" gorm:"type:uuid;not null"`
	Reason    string    `json:"reason" gorm:"type:text;not null"`
	Status    Status    `json:"status" gorm:"type:varchar(20);not null;default:'OPEN';index"`

	ResolutionNote string     `json:"resolution_note,omitempty" gorm:"type:text"`
	Decision       string     `json:"decision,omitempty" gorm:"type:varchar(20)"`
	ResolvedBy     *uuid.UUID `json:"resolved_by,omitempty" gorm:"type:uuid"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Dispute) TableName() string {
	return "disputes"
}

func (d *Dispute) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (d *Dispute) IsResolved() bool {
	return d.Status == StatusResolved
}
