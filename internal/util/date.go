package util

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// DateOnly drops the time of day of t, keeping the calendar date as seen in
// t's own location. The result is midnight UTC so equal dates compare equal.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOnly(t), nil
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return DateOnly(t).Format(DateLayout)
}
