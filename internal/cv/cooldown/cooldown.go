// Package cooldown computes how long a company/CV-type pair must wait
// between two submissions. Every function takes the reference instant
// explicitly so one logical decision samples the clock once.
package cooldown

import "time"

// DefaultDays is the cooldown window applied when none is configured.
const DefaultDays = 60

const day = 24 * time.Hour

// DaysBetween returns the whole number of days between a and b, in either order.
func DaysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / day)
}

// CanSubmit reports whether a new submission is allowed at now.
func CanSubmit(last *time.Time, days int, now time.Time) bool {
	if last == nil {
		return true
	}
	return DaysBetween(*last, now) >= days
}

// DaysRemaining returns how many days are left in the window, never negative.
func DaysRemaining(last *time.Time, days int, now time.Time) int {
	if last == nil {
		return 0
	}
	return max(0, days-DaysBetween(*last, now))
}

// NextEligibleDate is last plus the window, or now when nothing was submitted.
func NextEligibleDate(last *time.Time, days int, now time.Time) time.Time {
	if last == nil {
		return now
	}
	return last.UTC().AddDate(0, 0, days)
}

// Decision bundles the three computations for one pair.
type Decision struct {
	Eligible         bool
	DaysRemaining    int
	NextEligibleDate time.Time
}

// Decide evaluates the window once against now.
func Decide(last *time.Time, days int, now time.Time) Decision {
	return Decision{
		Eligible:         CanSubmit(last, days, now),
		DaysRemaining:    DaysRemaining(last, days, now),
		NextEligibleDate: NextEligibleDate(last, days, now),
	}
}
