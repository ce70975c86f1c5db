package service

import (
	"time"

	"github.com/tazhate/freetime/internal/domain"
)

// GroupBusyByDay builds the busy list of every day in days. An event is
// attached to the day it starts on in loc and is never split across
// midnight. All-day and malformed events are skipped. Fetch order is kept
func GroupBusyByDay(days []domain.Day, events []domain.CalendarEvent, loc *time.Location) map[domain.Day][]domain.BusyInterval {
	if loc == nil {
		loc = time.Local
	}

	busy := make(map[domain.Day][]domain.BusyInterval, len(days))
	for _, d := range days {
		busy[d] = []domain.BusyInterval{}
	}

	for i := range events {
		e := &events[i]
		if !e.Timed() || e.End.Before(e.Start) {
			continue
		}

		start := e.Start.In(loc)
		day := domain.DayOf(start)
		list, ok := busy[day]
		if !ok {
			continue // starts outside the query range
		}
		busy[day] = append(list, domain.BusyInterval{Start: start, End: e.End.In(loc)})
	}

	return busy
}
