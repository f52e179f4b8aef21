package leave

import (
	"math"
	"time"
)

// =============================================================================
// DAY-SPAN CALCULATION
// =============================================================================

// CalculateDays returns the inclusive day span between start and end:
// ceil((end - start) in days) + 1. Both endpoints count, so a single-day
// request yields 1. Returns 0 when either date is absent.
//
// Ordering is NOT validated here: with end before start the result is zero or
// negative and must not be trusted for balance math. The validator rejects
// reversed ranges before the count is used.
func CalculateDays(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return int(math.Ceil(end.Sub(start).Hours()/24)) + 1
}

// DaysUntil returns the number of calendar days from one date to another,
// ignoring time of day. Negative when to precedes from.
func DaysUntil(from, to time.Time) int {
	return int(StartOfDay(to).Sub(StartOfDay(from)).Hours() / 24)
}

// StartOfDay truncates a time to midnight UTC of its calendar date.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
