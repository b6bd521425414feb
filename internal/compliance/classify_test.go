package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crewdocs/crewdocs-api/internal/models"
)

// A fixed "today" away from month and DST boundaries keeps the table easy to
// read; boundary behavior itself is what the table exercises.
var today = time.Date(2026, time.March, 16, 14, 30, 0, 0, time.Local)

func dayOffset(days int) *time.Time {
	d := today.AddDate(0, 0, days)
	return &d
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		expiry *time.Time
		want   models.ComplianceState
	}{
		{"no expiry tracked", nil, models.StateValid},
		{"yesterday", dayOffset(-1), models.StateExpired},
		{"long expired", dayOffset(-200), models.StateExpired},
		{"expires today", dayOffset(0), models.StateExpiringSoon},
		{"expires tomorrow", dayOffset(1), models.StateExpiringSoon},
		{"window edge day 30", dayOffset(30), models.StateExpiringSoon},
		{"just past window day 31", dayOffset(31), models.StateValid},
		{"far future", dayOffset(365), models.StateValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.expiry, today))
		})
	}
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	// Expiry stored at midnight, "now" late in the evening of the same day:
	// still the same calendar day, still expiring-soon.
	expiry := time.Date(2026, time.March, 16, 0, 0, 0, 0, time.Local)
	now := time.Date(2026, time.March, 16, 23, 59, 0, 0, time.Local)

	assert.Equal(t, models.StateExpiringSoon, Classify(&expiry, now))
	assert.Equal(t, 0, DaysUntil(expiry, now))
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, -1, DaysUntil(*dayOffset(-1), today))
	assert.Equal(t, 0, DaysUntil(*dayOffset(0), today))
	assert.Equal(t, 30, DaysUntil(*dayOffset(30), today))
	assert.Equal(t, 31, DaysUntil(*dayOffset(31), today))
}

func TestHumanizeDaysRemaining(t *testing.T) {
	tests := []struct {
		name   string
		expiry *time.Time
		want   string
	}{
		{"no expiry", nil, "no expiry set"},
		{"one day overdue", dayOffset(-1), "expired 1 day ago"},
		{"several days overdue", dayOffset(-14), "expired 14 days ago"},
		{"today", dayOffset(0), "expires today"},
		{"tomorrow", dayOffset(1), "expires tomorrow"},
		{"inside window", dayOffset(2), "expires in 2 days"},
		{"window edge", dayOffset(30), "expires in 30 days"},
		{"outside window", dayOffset(31), "valid for 31 more days"},
		{"far future", dayOffset(90), "valid for 90 more days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanizeDaysRemaining(tt.expiry, today))
		})
	}
}

// "expires today" and the expiring-soon state must flip together.
func TestHumanizeMatchesClassifyOnDayZero(t *testing.T) {
	expiry := dayOffset(0)
	assert.Equal(t, models.StateExpiringSoon, Classify(expiry, today))
	assert.Equal(t, "expires today", HumanizeDaysRemaining(expiry, today))
}
