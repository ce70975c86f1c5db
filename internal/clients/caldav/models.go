package caldav

import "time"

// Calendar represents a calendar collection on the server
type Calendar struct {
	Path        string
	DisplayName string
	Description string
}

// Event is a single event instance. Recurring events are returned as one
// Event per occurrence
type Event struct {
	UID       string
	Summary   string
	StartTime time.Time
	EndTime   time.Time
	AllDay    bool
	// RecurrenceID is set for instances produced from a recurring event
	RecurrenceID time.Time
}
