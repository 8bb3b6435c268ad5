package domain

import (
	"strings"
	"time"
)

// ParseDate reads an ISO calendar date. Full RFC3339 timestamps are accepted and
// truncated to their UTC date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := ts.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// DateOf formats the calendar date of t in t's own location.
func DateOf(t time.Time) string {
	return t.Format(time.DateOnly)
}

// Timestamp formats t the way every created_at/updated_at field is stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
