package caldav

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// maxOccurrences caps the expansion of a single recurring event
const maxOccurrences = 5000

var errInverted = errors.New("event ends before it starts")

// vevent is a parsed VEVENT before expansion
type vevent struct {
	uid          string
	summary      string
	start        time.Time
	end          time.Time
	allDay       bool
	cancelled    bool
	rrule        string
	exdates      []time.Time
	recurrenceID time.Time
}

func (v vevent) instance(start, end, recurrenceID time.Time) Event {
	return Event{
		UID:          v.uid,
		Summary:      v.summary,
		StartTime:    start,
		EndTime:      end,
		AllDay:       v.allDay,
		RecurrenceID: recurrenceID,
	}
}

// ExpandCalendar returns the event instances of cal that overlap [from, to).
// Floating times are read in loc. VEVENTs with missing or unparseable
// DTSTART/DTEND are skipped
func ExpandCalendar(cal *ical.Calendar, from, to time.Time, loc *time.Location) []Event {
	if loc == nil {
		loc = time.Local
	}

	var masters []vevent
	overrides := make(map[string][]vevent)

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		ev, err := parseVEvent(comp, loc)
		if err != nil {
			continue // Skip invalid events
		}

		if !ev.recurrenceID.IsZero() {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
			continue
		}
		masters = append(masters, ev)
	}

	var events []Event
	for _, m := range masters {
		if m.cancelled {
			continue
		}
		events = append(events, expandEvent(m, overrides[m.uid], from, to)...)
	}

	// Overrides stand on their own: the master instance they replace is
	// suppressed in expandEvent
	for _, list := range overrides {
		for _, o := range list {
			if o.cancelled || !overlaps(o.start, o.end, from, to) {
				continue
			}
			events = append(events, o.instance(o.start, o.end, o.recurrenceID))
		}
	}

	return events
}

func expandEvent(ev vevent, overrides []vevent, from, to time.Time) []Event {
	if ev.rrule == "" {
		if !overlaps(ev.start, ev.end, from, to) {
			return nil
		}
		return []Event{ev.instance(ev.start, ev.end, time.Time{})}
	}

	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		log.Printf("Skipping event %s: invalid RRULE %q: %v", ev.uid, ev.rrule, err)
		return nil
	}
	r.DTStart(ev.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exdates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	dur := ev.end.Sub(ev.start)
	starts := set.Between(from.Add(-dur).In(ev.start.Location()), to.In(ev.start.Location()), true)
	if len(starts) > maxOccurrences {
		log.Printf("Truncating event %s to %d occurrences", ev.uid, maxOccurrences)
		starts = starts[:maxOccurrences]
	}

	var events []Event
	for _, start := range starts {
		if overridden(overrides, start) {
			continue
		}
		end := start.Add(dur)
		if !overlaps(start, end, from, to) {
			continue
		}
		events = append(events, ev.instance(start, end, start))
	}
	return events
}

func overridden(overrides []vevent, start time.Time) bool {
	for _, o := range overrides {
		if o.recurrenceID.Equal(start) {
			return true
		}
	}
	return false
}

// overlaps reports whether [start, end) intersects [from, to). A zero-length
// event counts when it lies inside the range
func overlaps(start, end, from, to time.Time) bool {
	if !start.Before(to) {
		return false
	}
	if end.Equal(start) {
		return !start.Before(from)
	}
	return end.After(from)
}

// parseVEvent reads the properties needed for availability from a VEVENT
func parseVEvent(comp *ical.Component, loc *time.Location) (vevent, error) {
	var ev vevent

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		ev.uid = prop.Value
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		ev.summary = prop.Value
	}
	if prop := comp.Props.Get(ical.PropStatus); prop != nil {
		ev.cancelled = strings.EqualFold(prop.Value, "CANCELLED")
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return ev, fmt.Errorf("missing %s", ical.PropDateTimeStart)
	}
	start, err := startProp.DateTime(loc)
	if err != nil {
		return ev, err
	}
	ev.start = start

	// Check if all-day event
	if valueType := startProp.Params.Get(ical.ParamValue); valueType == string(ical.ValueDate) {
		ev.allDay = true
	}
	if !strings.Contains(startProp.Value, "T") {
		ev.allDay = true
	}

	switch {
	case comp.Props.Get(ical.PropDateTimeEnd) != nil:
		end, err := comp.Props.Get(ical.PropDateTimeEnd).DateTime(loc)
		if err != nil {
			return ev, err
		}
		ev.end = end
	case comp.Props.Get(ical.PropDuration) != nil:
		dur, err := comp.Props.Get(ical.PropDuration).Duration()
		if err != nil {
			return ev, err
		}
		ev.end = start.Add(dur)
	case ev.allDay:
		ev.end = start.AddDate(0, 0, 1)
	default:
		ev.end = start
	}

	if ev.end.Before(ev.start) {
		return ev, errInverted
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		ev.rrule = prop.Value
	}

	// EXDATE may repeat and may hold a comma-separated list
	for _, prop := range comp.Props[ical.PropExceptionDates] {
		for _, part := range strings.Split(prop.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			single := ical.Prop{Name: prop.Name, Params: prop.Params, Value: part}
			if t, err := single.DateTime(loc); err == nil {
				ev.exdates = append(ev.exdates, t)
			}
		}
	}

	if prop := comp.Props.Get(ical.PropRecurrenceID); prop != nil {
		rid, err := prop.DateTime(loc)
		if err != nil {
			return ev, err
		}
		ev.recurrenceID = rid
	}

	return ev, nil
}
