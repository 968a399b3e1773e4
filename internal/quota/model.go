package quota

import "time"

// Snapshot is the ephemeral view of a user's (and optionally one keyword's)
// fair-share quota for the current effective date. It is recomputed from
// live counts on every check, never cached: a keyword's share legitimately
// shrinks mid-day when its owner activates more keywords.
type Snapshot struct {
	UsageDate    time.Time `json:"usage_date"`
	UserQuota    int       `json:"user_quota"`
	KeywordQuota int       `json:"keyword_quota"`
	UserUsed     int       `json:"user_used"`
	KeywordUsed  int       `json:"keyword_used"`
}

// UserRemaining returns the user's unspent share, floored at zero.
func (s Snapshot) UserRemaining() int {
	if r := s.UserQuota - s.UserUsed; r > 0 {
		return r
	}
	return 0
}

// KeywordRemaining returns the keyword's unspent share, floored at zero.
func (s Snapshot) KeywordRemaining() int {
	if r := s.KeywordQuota - s.KeywordUsed; r > 0 {
		return r
	}
	return 0
}

// EffectiveDate returns the calendar date a quota-consuming action at
// instant t is attributed to, after shifting the clock back by the
// provider's UTC reset hour. All calls between two resets land in the
// same bucket.
func EffectiveDate(resetHourUTC int, t time.Time) time.Time {
	shifted := t.UTC().Add(-time.Duration(resetHourUTC) * time.Hour)
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
}

// NextResetAt returns the next provider reset instant after t.
func NextResetAt(resetHourUTC int, t time.Time) time.Time {
	t = t.UTC()
	reset := time.Date(t.Year(), t.Month(), t.Day(), resetHourUTC, 0, 0, 0, time.UTC)
	if !t.Before(reset) {
		reset = reset.AddDate(0, 0, 1)
	}
	return reset
}
