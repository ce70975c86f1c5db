package service

import (
	"sort"
	"time"

	"github.com/tazhate/freetime/internal/domain"
)

// FindFreeTime derives the free intervals of every day in busy
func FindFreeTime(busy map[domain.Day][]domain.BusyInterval, w domain.Window, loc *time.Location) map[domain.Day][]domain.FreeInterval {
	free := make(map[domain.Day][]domain.FreeInterval, len(busy))
	for day, events := range busy {
		free[day] = FreeTime(day, events, w, loc)
	}
	return free
}

// FreeTime sweeps the busy intervals of one day and returns the parts of the
// working window they leave uncovered, in increasing order. The input slice
// is not modified
func FreeTime(day domain.Day, busy []domain.BusyInterval, w domain.Window, loc *time.Location) []domain.FreeInterval {
	if loc == nil {
		loc = time.Local
	}

	dayStart := w.Start.On(day, loc)
	dayEnd := w.End.On(day, loc)

	if len(busy) == 0 {
		return []domain.FreeInterval{{Start: w.Start, End: w.End}}
	}

	events := sortedBusy(busy)
	free := []domain.FreeInterval{}
	cursor := dayStart

	// Free spans are whole minutes: starts round up, ends round down, so a
	// busy second is never reported as free
	emit := func(from, to time.Time) {
		if to.After(dayEnd) {
			to = dayEnd
		}
		start := domain.TimeOfDayOf(ceilMinute(from).In(loc))
		end := domain.TimeOfDayOf(to.Truncate(time.Minute).In(loc))
		if start.Before(end) {
			free = append(free, domain.FreeInterval{Start: start, End: end})
		}
	}

	for _, e := range events {
		// Takes no time
		if !e.End.After(e.Start) {
			continue
		}

		// Covers the whole window: nothing is free
		if !e.Start.After(dayStart) && !e.End.Before(dayEnd) {
			return []domain.FreeInterval{}
		}

		// Already consumed
		if !e.End.After(cursor) {
			continue
		}

		// Overlaps or abuts the cursor from the left
		if !e.Start.After(cursor) {
			cursor = e.End
			continue
		}

		emit(cursor, e.Start)

		// Runs to the end of the window or beyond
		if !e.End.Before(dayEnd) {
			return free
		}

		cursor = e.End
	}

	emit(cursor, dayEnd)
	return free
}

// ceilMinute rounds t up to the next whole minute
func ceilMinute(t time.Time) time.Time {
	m := t.Truncate(time.Minute)
	if m.Before(t) {
		return m.Add(time.Minute)
	}
	return m
}

// sortedBusy returns a copy of busy ordered by start, then by end
func sortedBusy(busy []domain.BusyInterval) []domain.BusyInterval {
	events := make([]domain.BusyInterval, len(busy))
	copy(events, busy)
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].End.Before(events[j].End)
	})
	return events
}
