// Package calendar holds date-only helpers. A "date" is a time.Time at
// midnight UTC carrying the wall-clock year, month and day of the source time.
package calendar

import (
	"errors"
	"time"
)

const layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// DateOf drops the clock part of t keeping its wall-clock date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayIndex returns the weekday index of t with Monday=0 ... Sunday=6.
func DayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekStart returns the Monday of the calendar week containing t.
func WeekStart(t time.Time) time.Time {
	return DateOf(t).AddDate(0, 0, -DayIndex(t))
}

// NextWeekStart returns the first Monday strictly after t's date.
func NextWeekStart(t time.Time) time.Time {
	ahead := (7 - DayIndex(t)) % 7
	if ahead == 0 {
		ahead = 7
	}
	return DateOf(t).AddDate(0, 0, ahead)
}

func AddDays(date time.Time, days int) time.Time {
	return date.AddDate(0, 0, days)
}

func IsMonday(date time.Time) bool {
	return date.Weekday() == time.Monday
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func Format(date time.Time) string {
	return date.Format(layout)
}

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

// In returns the clock's current instant in loc; a nil clock reads time.Now.
func (c Clock) In(loc *time.Location) time.Time {
	now := time.Now
	if c != nil {
		now = c
	}
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}
