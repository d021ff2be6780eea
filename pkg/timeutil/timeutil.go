// Package timeutil provides calendar-day helpers used by streaks and daily goals.
// Every helper takes the location whose midnight defines a "day"; nil means UTC.
package timeutil

import (
	"fmt"
	"time"
)

// Clock abstracts time.Now so that handlers can be driven by tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Advance moves it forward.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// LoadLocation resolves an IANA zone name, treating "" as UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: load location %q: %w", name, err)
	}
	return loc, nil
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	loc = orUTC(loc)
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayKey returns the calendar day of t in loc as a UTC midnight value.
// Storage layers use it as the DATE column of per-day rows.
func DayKey(t time.Time, loc *time.Location) time.Time {
	local := t.In(orUTC(loc))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from `from` to `to`
// in loc. Computed on calendar dates, so DST shifts never produce off-by-one.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	a := DayKey(from, loc)
	b := DayKey(to, loc)
	return int(b.Sub(a).Hours() / 24)
}

// IsSameDay checks if two instants fall on the same calendar day in loc.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	return DaysBetween(t1, t2, loc) == 0
}

// IsConsecutiveDay checks if t2 falls on the day after t1.
func IsConsecutiveDay(t1, t2 time.Time, loc *time.Location) bool {
	return DaysBetween(t1, t2, loc) == 1
}

// FormatDateStr formats t as YYYY-MM-DD.
func FormatDateStr(t time.Time) string {
	return t.Format("2006-01-02")
}

// CompactDate formats t as YYYYMMDD in UTC.
func CompactDate(t time.Time) string {
	return t.UTC().Format("20060102")
}
