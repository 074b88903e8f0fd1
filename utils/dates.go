package utils

import (
	"fmt"
	"strings"
	"time"
)

var startDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02,15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseStartDate parses the stored start-date string. Dates without an explicit
// zone are read as UTC.
func ParseStartDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range startDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// RollToUpcomingYear moves date into the current year, or the next one when its
// month-day has already passed relative to now. Feb 29 rolls onto Mar 1 in
// non-leap years.
func RollToUpcomingYear(date, now time.Time) time.Time {
	now = now.UTC()
	year := now.Year()
	if now.Month() > date.Month() || (now.Month() == date.Month() && now.Day() > date.Day()) {
		year++
	}
	return time.Date(year, date.Month(), date.Day(), date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), time.UTC)
}

// IsRolledLeapDay reports whether t is a Mar 1 of a non-leap year, which is
// where RollToUpcomingYear puts Feb 29 start dates.
func IsRolledLeapDay(t time.Time) bool {
	t = t.UTC()
	if t.Month() != time.March || t.Day() != 1 {
		return false
	}
	year := t.Year()
	leap := year%4 == 0 && (year%100 != 0 || year%400 == 0)
	return !leap
}

// MonthDay is the year-less key used to match recurring annual dates.
func MonthDay(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d-%d", int(t.Month()), t.Day())
}

// FormatMonthDay renders dates as "June 19".
func FormatMonthDay(t time.Time) string {
	return t.UTC().Format("January 2")
}

// FormatLongDate renders dates as "19 June 2025".
func FormatLongDate(t time.Time) string {
	return t.UTC().Format("2 January 2006")
}
