package constants

import "fmt"

// Redis key builders. Keeping every key format in one place avoids the
// slow drift of ad hoc fmt.Sprintf calls across packages.

const (
	// Key prefixes
	PrefixAvailability = "stayvault:availability"
	PrefixFinancials   = "stayvault:financials"
	PrefixSweepLock    = "stayvault:sweep"

	// SweepLockKey guards the release sweep so only one instance runs it
	SweepLockKey = PrefixSweepLock + ":lock"
)

// AvailabilityDayKey caches the day-level availability answer for a listing
func AvailabilityDayKey(listingID, date string) string {
	return fmt.Sprintf("%s:%s:%s", PrefixAvailability, listingID, date)
}

// AvailabilityHourKey caches the hour-level availability answer for a listing
func AvailabilityHourKey(listingID, date string, hour int) string {
	return fmt.Sprintf("%s:%s:%s:%02d", PrefixAvailability, listingID, date, hour)
}

// AvailabilityListingPattern matches every cached availability entry for a
// listing; used for invalidation when a booking is created or cancelled
func AvailabilityListingPattern(listingID string) string {
	return fmt.Sprintf("%s:%s:*", PrefixAvailability, listingID)
}
