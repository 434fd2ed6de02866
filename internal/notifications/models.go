package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened in the escrow engine
type EventType string

const (
	EventPaymentRecorded EventType = "PAYMENT_RECORDED"
	EventPayoutReleased  EventType = "PAYOUT_RELEASED"
	EventRefundIssued    EventType = "REFUND_ISSUED"
	EventDisputeOpened   EventType = "DISPUTE_OPENED"
	EventDisputeResolved EventType = "DISPUTE_RESOLVED"
)

// Event is the typed payload published to the escrow event topic. Delivery,
// formatting, and persistence of user-facing notifications happen downstream.
type Event struct {
	ID            uuid.UUID  `json:"id"`
	Type          EventType  `json:"type"`
	BookingID     uuid.UUID  `json:"booking_id"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Amount        float64    `json:"amount,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	GuestID       *uuid.UUID `json:"guest_id,omitempty"`
	HostID        *uuid.UUID `json:"host_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Decision      string     `json:"decision,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func NewEvent(eventType EventType, bookingID uuid.UUID) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		BookingID:  bookingID,
		OccurredAt: time.Now(),
	}
}

func (e *Event) WithTransaction(transactionID uuid.UUID, amount float64, currency string) *Event {
	e.TransactionID = &transactionID
	e.Amount = amount
	e.Currency = currency
	return e
}

func (e *Event) WithParties(guestID, hostID *uuid.UUID) *Event {
	e.GuestID = guestID
	e.HostID = hostID
	return e
}

func (e *Event) WithReason(reason string) *Event {
	e.Reason = reason
	return e
}

func (e *Event) WithDecision(decision string) *Event {
	e.Decision = decision
	return e
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey routes all events of one booking to the same partition so
// consumers observe them in order
func (e *Event) PartitionKey() string {
	return e.BookingID.String()
}
