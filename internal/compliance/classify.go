// Package compliance derives document compliance states from expiry dates
// and aggregates them into per-subject summaries. Everything here is pure:
// callers pass the reference time in, nothing reads the wall clock.
package compliance

import (
	"fmt"
	"time"

	"github.com/crewdocs/crewdocs-api/internal/models"
)

// ExpiringWindowDays is the look-ahead window for the expiring-soon state,
// inclusive on both ends. A document expiring today is expiring-soon, not
// expired.
const ExpiringWindowDays = 30

// DaysUntil returns the whole-day difference between the expiry date and the
// reference date. Both are reduced to local calendar days; time of day and
// DST shifts do not affect the result.
func DaysUntil(expiry, now time.Time) int {
	e := civilDate(expiry)
	n := civilDate(now)
	return int(e.Sub(n) / (24 * time.Hour))
}

// civilDate reduces a timestamp to its local calendar day, re-anchored in UTC
// so that subtraction always yields exact multiples of 24h.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Classify maps an optional expiry date to a compliance state. A document
// with no expiry tracked is always valid.
func Classify(expiry *time.Time, now time.Time) models.ComplianceState {
	if expiry == nil {
		return models.StateValid
	}

	days := DaysUntil(*expiry, now)
	switch {
	case days < 0:
		return models.StateExpired
	case days <= ExpiringWindowDays:
		return models.StateExpiringSoon
	default:
		return models.StateValid
	}
}

// HumanizeDaysRemaining produces the display string for an expiry date. Its
// boundaries match Classify exactly: "expires today" is only returned when
// Classify yields expiring-soon with zero days remaining.
func HumanizeDaysRemaining(expiry *time.Time, now time.Time) string {
	if expiry == nil {
		return "no expiry set"
	}

	days := DaysUntil(*expiry, now)
	switch {
	case days < 0:
		overdue := -days
		if overdue == 1 {
			return "expired 1 day ago"
		}
		return fmt.Sprintf("expired %d days ago", overdue)
	case days == 0:
		return "expires today"
	case days == 1:
		return "expires tomorrow"
	case days <= ExpiringWindowDays:
		return fmt.Sprintf("expires in %d days", days)
	default:
		return fmt.Sprintf("valid for %d more days", days)
	}
}
