// Package clock treats booking dates as whole days in one reference timezone.
//
// A calendar day is represented as a time.Time at 00:00 UTC carrying the civil
// date of the reference zone. Postgres DATE columns scan into the same shape,
// so days loaded from the store compare directly with days computed here.
package clock

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Clock supplies the current instant and the zone used to derive calendar days.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// New returns a wall clock bound to the given IANA zone name.
func New(zone string) (Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", zone, err)
	}
	return &systemClock{loc: loc}, nil
}

func (c *systemClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c *systemClock) Location() *time.Location { return c.loc }

// Fixed is a clock frozen at a settable instant. Used in tests and tooling.
type Fixed struct {
	At  time.Time
	Loc *time.Location
}

func (f *Fixed) Now() time.Time { return f.At.In(f.Location()) }

func (f *Fixed) Location() *time.Location {
	if f.Loc == nil {
		return time.UTC
	}
	return f.Loc
}

// Advance moves the fixed clock forward.
func (f *Fixed) Advance(d time.Duration) { f.At = f.At.Add(d) }

// Day returns the calendar day t falls on in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Normalize truncates a date-only value (already a calendar day) to midnight UTC.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar day of c.
func Today(c Clock) time.Time {
	return Day(c.Now(), c.Location())
}

// Nights counts the nights between check-in and the exclusive checkout day.
func Nights(start, end time.Time) int {
	return int(Normalize(end).Sub(Normalize(start)).Hours() / 24)
}

// ParseDate parses YYYY-MM-DD into a calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay returns the first instant of calendar day in loc.
func StartOfDay(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
