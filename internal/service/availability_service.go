package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tazhate/freetime/internal/clients/caldav"
	"github.com/tazhate/freetime/internal/domain"
)

// EventSource is the calendar server the availability is computed from
type EventSource interface {
	DiscoverCalendars(ctx context.Context) ([]caldav.Calendar, error)
	GetEvents(ctx context.Context, calendarPath string, from, to time.Time) ([]caldav.Event, error)
}

// Query describes one availability request
type Query struct {
	From   time.Time // first day of the range is the date of From
	Weeks  int
	Window domain.Window
}

// Validate checks the query before any network round-trip
func (q Query) Validate() error {
	if q.Weeks < 0 {
		return fmt.Errorf("number of weeks must not be negative, got %d", q.Weeks)
	}
	return q.Window.Validate()
}

// Days returns every date from the date of From to the date Weeks weeks later, inclusive
func (q Query) Days(loc *time.Location) []domain.Day {
	from := q.From.In(loc)
	return domain.Days(from, from.AddDate(0, 0, 7*q.Weeks))
}

// AvailabilityService computes free time from CalDAV calendars
type AvailabilityService struct {
	source    EventSource
	calendars []string       // display names of the calendars to read
	timezone  *time.Location // zone days and windows are expressed in
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(source EventSource, calendars []string, tz *time.Location) *AvailabilityService {
	if tz == nil {
		tz = time.Local
	}
	return &AvailabilityService{
		source:    source,
		calendars: calendars,
		timezone:  tz,
	}
}

// Timezone returns the zone availability is computed in
func (s *AvailabilityService) Timezone() *time.Location {
	return s.timezone
}

// ListCalendars returns the calendars available on the server
func (s *AvailabilityService) ListCalendars(ctx context.Context) ([]domain.Calendar, error) {
	cals, err := s.source.DiscoverCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover calendars: %w", err)
	}

	result := make([]domain.Calendar, 0, len(cals))
	for _, c := range cals {
		result = append(result, domain.Calendar{Path: c.Path, Name: c.DisplayName})
	}
	return result, nil
}

// FetchEvents reads events from every configured calendar, one calendar at a
// time. The first failure aborts the fetch
func (s *AvailabilityService) FetchEvents(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error) {
	cals, err := s.source.DiscoverCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover calendars: %w", err)
	}

	var events []domain.CalendarEvent
	for _, name := range s.calendars {
		cal, err := caldav.FindByName(cals, name)
		if err != nil {
			return nil, err
		}

		fetched, err := s.source.GetEvents(ctx, cal.Path, from, to)
		if err != nil {
			return nil, fmt.Errorf("get events from %q: %w", name, err)
		}

		for _, e := range fetched {
			events = append(events, domain.CalendarEvent{
				UID:      e.UID,
				Title:    e.Summary,
				Calendar: cal.DisplayName,
				Start:    e.StartTime,
				End:      e.EndTime,
				AllDay:   e.AllDay,
			})
		}
	}

	return events, nil
}

// Availability fetches the events of the query range and returns the free
// time of every day, ordered by date
func (s *AvailabilityService) Availability(ctx context.Context, q Query) ([]domain.DayAvailability, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	days := q.Days(s.timezone)
	from := days[0].Time(s.timezone)
	to := days[len(days)-1].Time(s.timezone).AddDate(0, 0, 1)

	events, err := s.FetchEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return BuildAvailability(days, events, q.Window, s.timezone), nil
}

// BuildAvailability runs normalization and derivation over fetched events
func BuildAvailability(days []domain.Day, events []domain.CalendarEvent, w domain.Window, loc *time.Location) []domain.DayAvailability {
	busy := GroupBusyByDay(days, events, loc)
	free := FindFreeTime(busy, w, loc)

	result := make([]domain.DayAvailability, 0, len(free))
	for day, intervals := range free {
		result = append(result, domain.DayAvailability{Day: day, Free: intervals})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Day.Before(result[j].Day)
	})
	return result
}
