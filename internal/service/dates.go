package service

import (
	"fmt"
	"strings"
	"time"
)

const (
	longDateLayout     = "2006年1月2日"
	longDateTimeLayout = "2006年1月2日 15:04"
)

// AddMonths adds n calendar months to t. The day of month is kept unless the
// target month is shorter, in which case it clamps to that month's last day
// (2025-01-31 + 1 month = 2025-02-28).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseCivilDate reads YYYY-MM-DD, or an RFC 3339 timestamp whose calendar
// date is kept as written. The result is midnight UTC of that date.
func ParseCivilDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// SurveyDueDate returns start + months, formatted as a long Japanese date.
func SurveyDueDate(start string, months int) (string, error) {
	t, err := ParseCivilDate(start)
	if err != nil {
		return "", err
	}
	return AddMonths(t, months).Format(longDateLayout), nil
}

// FormatLong formats an instant as date and time in loc.
func FormatLong(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(longDateTimeLayout)
}

// FormatShort reformats a date string as a long Japanese date without time.
func FormatShort(date string) (string, error) {
	t, err := ParseCivilDate(date)
	if err != nil {
		return "", err
	}
	return AddMonths(t, 0).Format(longDateLayout), nil
}
