package listings

import "time"

// BookedSlot is the minimal view of an existing booking the availability
// checker needs. The bookings package adapts its model into this shape to
// avoid a circular dependency.
type BookedSlot struct {
	Date      time.Time
	Duration  int   // nights/days for daily listings
	Hours     []int // occupied hours for hourly listings
	Cancelled bool
}

// DateOnly truncates a timestamp to its day in UTC. All day comparisons in
// the checker go through this so time-of-day never affects blocking.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsDateAvailable reports whether candidate day c is free given existing
// bookings. A booking starting day d with duration n occupies the half-open
// interval [d, d+n): the checkout day itself stays bookable. Cancelled
// bookings never block; zero duration occupies just the start date.
func IsDateAvailable(slots []BookedSlot, c time.Time) bool {
	day := DateOnly(c)
	for _, s := range slots {
		if s.Cancelled {
			continue
		}
		start := DateOnly(s.Date)
		n := s.Duration
		if n < 1 {
			n = 1
		}
		end := start.AddDate(0, 0, n)
		if !day.Before(start) && day.Before(end) {
			return false
		}
	}
	return true
}

// IsHourAvailable reports whether (date, hour) is free on an hourly listing.
// A candidate is blocked iff a non-cancelled booking on the same day lists
// that hour.
func IsHourAvailable(slots []BookedSlot, c time.Time, hour int) bool {
	day := DateOnly(c)
	for _, s := range slots {
		if s.Cancelled {
			continue
		}
		if !DateOnly(s.Date).Equal(day) {
			continue
		}
		for _, h := range s.Hours {
			if h == hour {
				return false
			}
		}
	}
	return true
}

// AreHoursAvailable checks a whole set of requested hours at once
func AreHoursAvailable(slots []BookedSlot, c time.Time, hours []int) bool {
	for _, h := range hours {
		if !IsHourAvailable(slots, c, h) {
			return false
		}
	}
	return true
}

// BlockedDates expands bookings into the set of blocked days within
// [from, to), for calendar rendering
func BlockedDates(slots []BookedSlot, from, to time.Time) []time.Time {
	var blocked []time.Time
	for d := DateOnly(from); d.Before(DateOnly(to)); d = d.AddDate(0, 0, 1) {
		if !IsDateAvailable(slots, d) {
			blocked = append(blocked, d)
		}
	}
	return blocked
}
