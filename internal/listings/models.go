package listings

import (
	"time"

	"github.com/google/uuid"
)

// PricingMode distinguishes day-granularity listings from hourly ones
type PricingMode string

const (
	ModeDaily  PricingMode = "DAILY"
	ModeHourly PricingMode = "HOURLY"
)

func (m PricingMode) IsValid() bool {
	return m == ModeDaily || m == ModeHourly
}

// CancellationPolicy determines how long funds are held after checkout
type CancellationPolicy string

const (
	PolicyFlexible CancellationPolicy = "FLEXIBLE"
	PolicyModerate CancellationPolicy = "MODERATE"
	PolicyStrict   CancellationPolicy = "STRICT"
)

func (p CancellationPolicy) IsValid() bool {
	switch p {
	case PolicyFlexible, PolicyModerate, PolicyStrict:
		return true
	}
	return false
}

// Listing is one bookable space
type Listing struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	HostID      uuid.UUID   `gorm:"type:uuid;index;not null" json:"host_id"`
	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	Mode        PricingMode `gorm:"type:varchar(10);check:mode IN ('DAILY', 'HOURLY');default:'DAILY'" json:"mode"`

	BasePrice     float64 `gorm:"not null" json:"base_price"`
	ExtraGuestFee float64 `json:"extra_guest_fee"`
	CautionFee    float64 `json:"caution_fee"`
	MaxGuests     int     `gorm:"default:2" json:"max_guests"`

	CancellationPolicy CancellationPolicy `gorm:"type:varchar(10);check:cancellation_policy IN ('FLEXIBLE', 'MODERATE', 'STRICT');default:'FLEXIBLE'" json:"cancellation_policy"`

	// CheckOutHour is the hour of day (0-23) a daily stay ends; release-date
	// computation anchors on it
	CheckOutHour int `gorm:"default:11" json:"check_out_hour"`

	// OpenHours maps weekday ("sun".."sat") to bookable hours for HOURLY
	// listings; empty means every hour is open
	OpenHours map[string][]int `gorm:"serializer:json" json:"open_hours,omitempty"`

	Status    string    `gorm:"type:varchar(20);check:status IN ('ACTIVE', 'SUSPENDED');default:'ACTIVE'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Listing
func (Listing) TableName() string {
	return "listings"
}

func (l *Listing) IsActive() bool {
	return l.Status == "ACTIVE"
}

// IsHourOpen reports whether a listing accepts bookings at the given hour
// on the given weekday. Daily listings are implicitly open all day.
func (l *Listing) IsHourOpen(weekday time.Weekday, hour int) bool {
	if l.Mode != ModeHourly || len(l.OpenHours) == 0 {
		return true
	}
	open, ok := l.OpenHours[weekdayKey(weekday)]
	if !ok {
		return false
	}
	for _, h := range open {
		if h == hour {
			return true
		}
	}
	return false
}

func weekdayKey(d time.Weekday) string {
	return [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}[d]
}
