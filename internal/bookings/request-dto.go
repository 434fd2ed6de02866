package bookings

// CreateBookingRequest represents a guest checkout request
type CreateBookingRequest struct {
	ListingID string `json:"listing_id" binding:"required,uuid"`
	Date      string `json:"date" binding:"required"`
	Duration  int    `json:"duration" binding:"omitempty,gte=1,lte=90"`
	Hours     []int  `json:"hours" binding:"omitempty,dive,gte=0,lte=23"`
	Guests    int    `json:"guests" binding:"omitempty,gte=1,lte=50"`

	// Weekly recurring series: N sibling bookings a week apart sharing one
	// group id, each with independent payment and availability state
	RecurringWeeks int `json:"recurring_weeks" binding:"omitempty,gte=2,lte=52"`
}

// VerifyHandshakeRequest carries the guest's access code the host scanned
type VerifyHandshakeRequest struct {
	Code string `json:"code" binding:"required,min=4,max=12"`
}

// ListQuery represents admin booking list filters
type ListQuery struct {
	Status        string `form:"status" binding:"omitempty,oneof=PENDING CONFIRMED COMPLETED CANCELLED"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=PAID_ESCROW RELEASED REFUNDED"`
	DisputeStatus string `form:"dispute_status" binding:"omitempty,oneof=NONE OPEN IN_REVIEW RESOLVED"`
	ListingID     string `form:"listing_id" binding:"omitempty,uuid"`
	DateFrom      string `form:"date_from"`
	DateTo        string `form:"date_to"`
	Limit         int    `form:"limit" binding:"omitempty,gte=1,lte=100"`
	Offset        int    `form:"offset" binding:"omitempty,gte=0"`
}
