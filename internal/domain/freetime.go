package domain

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour clock)
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TimeOfDayOf returns the wall-clock part of t in t's location
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns minutes since midnight
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is earlier in the day than u
func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t.Minutes() < u.Minutes()
}

// On returns the instant of t on day d in loc
func (t TimeOfDay) On(d Day, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Day is a calendar date
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the date of t in t's location
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// Days returns every date from the date of from to the date of to, inclusive.
// Both instants are read in their own location
func Days(from, to time.Time) []Day {
	first := DayOf(from).Time(time.UTC)
	last := DayOf(to).Time(time.UTC)

	var days []Day
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, DayOf(d))
	}
	return days
}

// Time returns midnight of d in loc
func (d Day) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Before reports whether d is an earlier date than o
func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Window is the daily working window [Start, End)
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Validate checks that the window is non-empty and inside one day
func (w Window) Validate() error {
	for _, t := range []TimeOfDay{w.Start, w.End} {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return fmt.Errorf("invalid time of day %s", t)
		}
	}
	if !w.Start.Before(w.End) {
		return fmt.Errorf("day start %s must be before day end %s", w.Start, w.End)
	}
	return nil
}

// WithHours overrides the window boundaries with whole hours. A negative
// hour leaves the corresponding boundary unchanged
func (w Window) WithHours(startHour, endHour int) Window {
	if startHour >= 0 {
		w.Start = TimeOfDay{Hour: startHour}
	}
	if endHour >= 0 {
		w.End = TimeOfDay{Hour: endHour}
	}
	return w
}

// BusyInterval is the time occupied by one event on the day it starts
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// FreeInterval is a contiguous free span inside the working window
type FreeInterval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// DayAvailability holds the free intervals of one day
type DayAvailability struct {
	Day  Day
	Free []FreeInterval
}
