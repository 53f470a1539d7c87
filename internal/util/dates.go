package util

import (
	"fmt"
	"time"
)

// ISOTimestamp is the millisecond UTC layout stored in every timestamp column.
const ISOTimestamp = "2006-01-02T15:04:05.000Z"

// NowISO formats t in UTC with millisecond precision.
func NowISO(t time.Time) string {
	return t.UTC().Format(ISOTimestamp)
}

// MonthKey returns the UTC "YYYY-MM" key of t.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// WeekKey returns the ISO week key of t, e.g. "2025-W07".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ValidMonthKey reports whether s is a "YYYY-MM" key.
func ValidMonthKey(s string) bool {
	_, err := time.Parse("2006-01", s)
	return err == nil && len(s) == 7
}
