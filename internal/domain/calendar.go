package domain

import "time"

// Calendar is a calendar collection on the CalDAV server
type Calendar struct {
	Path string
	Name string
}

// CalendarEvent is a fetched event instance with recurrence already expanded
type CalendarEvent struct {
	UID      string
	Title    string
	Calendar string // display name of the source calendar
	Start    time.Time
	End      time.Time
	AllDay   bool
}

// Timed reports whether the event carries a time of day on both ends
func (e *CalendarEvent) Timed() bool {
	return !e.AllDay && !e.Start.IsZero() && !e.End.IsZero()
}
