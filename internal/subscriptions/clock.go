package subscriptions

import "time"

// NextBillingDate advances one calendar month, clamping to the last day
// of the target month when the anchor day does not exist there
// (Jan 31 -> Feb 28, or Feb 29 in leap years). Time of day and location
// are preserved.
func NextBillingDate(from time.Time) time.Time {
	year, month, day := from.Date()
	hour, minute, sec := from.Clock()

	// Day zero of month+2 normalizes to the last day of month+1.
	lastOfTarget := time.Date(year, month+2, 0, 0, 0, 0, 0, from.Location())
	if day > lastOfTarget.Day() {
		day = lastOfTarget.Day()
	}

	return time.Date(year, month+1, day, hour, minute, sec, from.Nanosecond(), from.Location())
}
