package subscriptions

import (
	"time"

	"github.com/sadhanapeeth/sadhana-backend/pkg/enums"
)

// CycleEnd computes when a subscription period started at start expires.
// The second return is false for one_time subscriptions, which have no
// expiry at all.
//
// Month-based cycles use calendar arithmetic with day clamping: monthly
// from Jan 31 lands on Feb 28 (29 in a leap year), not Mar 2.
func CycleEnd(start time.Time, cycle enums.BillingCycle) (time.Time, bool) {
	switch cycle {
	case enums.BillingCycleOneTime:
		return time.Time{}, false
	case enums.BillingCycleWeekly:
		return start.AddDate(0, 0, 7), true
	case enums.BillingCycleMonthly:
		return addMonthsClamped(start, 1), true
	case enums.BillingCycleQuarterly:
		return addMonthsClamped(start, 3), true
	case enums.BillingCycleHalfYearly:
		return addMonthsClamped(start, 6), true
	case enums.BillingCycleYearly:
		return addMonthsClamped(start, 12), true
	default:
		return time.Time{}, false
	}
}

// addMonthsClamped advances by whole calendar months, clamping the day of
// month to the target month's length. time.AddDate alone would normalize
// Jan 31 + 1 month into March.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}
