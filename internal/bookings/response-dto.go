package bookings

import (
	"time"

	"github.com/google/uuid"
)

// PriceBreakdown is the quoted financial breakdown returned at creation
type PriceBreakdown struct {
	BasePrice      float64 `json:"base_price"`
	ExtraGuestFees float64 `json:"extra_guest_fees"`
	ExtrasTotal    float64 `json:"extras_total"`
	Subtotal       float64 `json:"subtotal"`
	UserServiceFee float64 `json:"user_service_fee"`
	CautionFee     float64 `json:"caution_fee"`
	TotalPrice     float64 `json:"total_price"`
}

// CreateBookingResponse confirms a created booking (or series) to the guest
type CreateBookingResponse struct {
	Bookings      []Booking      `json:"bookings"`
	GroupID       *uuid.UUID     `json:"group_id,omitempty"`
	Breakdown     PriceBreakdown `json:"breakdown"`
	HandshakeCode string         `json:"handshake_code"`
	CreatedAt     time.Time      `json:"created_at"`
}
