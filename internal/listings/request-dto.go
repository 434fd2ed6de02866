package listings

// CreateListingRequest represents a request to publish a listing
type CreateListingRequest struct {
	Title              string           `json:"title" binding:"required,min=3,max=120"`
	Description        string           `json:"description" binding:"max=5000"`
	Mode               string           `json:"mode" binding:"required,oneof=DAILY HOURLY"`
	BasePrice          float64          `json:"base_price" binding:"required,gt=0"`
	ExtraGuestFee      float64          `json:"extra_guest_fee" binding:"gte=0"`
	CautionFee         float64          `json:"caution_fee" binding:"gte=0"`
	MaxGuests          int              `json:"max_guests" binding:"gte=0,lte=50"`
	CancellationPolicy string           `json:"cancellation_policy" binding:"omitempty,oneof=FLEXIBLE MODERATE STRICT"`
	CheckOutHour       int              `json:"check_out_hour" binding:"gte=0,lte=23"`
	OpenHours          map[string][]int `json:"open_hours" binding:"omitempty,hourmap"`
}

// AvailabilityQuery represents an availability check request
type AvailabilityQuery struct {
	Date  string `form:"date" binding:"required"`
	Hours []int  `form:"hours" binding:"omitempty,dive,gte=0,lte=23"`
}
