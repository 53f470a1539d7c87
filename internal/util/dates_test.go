package util

import (
	"testing"
	"time"
)

func TestWeekKey(t *testing.T) {
	cases := []struct {
		date string
		want string
	}{
		{"2025-02-12", "2025-W07"},
		{"2024-12-30", "2025-W01"},
		{"2021-01-03", "2020-W53"},
	}
	for _, c := range cases {
		d, err := time.Parse("2006-01-02", c.date)
		if err != nil {
			t.Fatalf("parse %s: %v", c.date, err)
		}
		if got := WeekKey(d); got != c.want {
			t.Fatalf("WeekKey(%s) = %s, want %s", c.date, got, c.want)
		}
	}
}

func TestMonthKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	d := time.Date(2025, 1, 31, 22, 0, 0, 0, loc)
	if got := MonthKey(d); got != "2025-02" {
		t.Fatalf("MonthKey = %s, want 2025-02", got)
	}
}

func TestNowISO(t *testing.T) {
	d := time.Date(2025, 12, 16, 18, 24, 25, 120_000_000, time.UTC)
	if got := NowISO(d); got != "2025-12-16T18:24:25.120Z" {
		t.Fatalf("NowISO = %s", got)
	}
}

func TestValidMonthKey(t *testing.T) {
	if !ValidMonthKey("2025-12") {
		t.Fatalf("expected 2025-12 to be valid")
	}
	for _, bad := range []string{"2025-13", "2025-1", "202512", ""} {
		if ValidMonthKey(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}
