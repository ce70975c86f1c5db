package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tazhate/freetime/internal/clients/caldav"
	"github.com/tazhate/freetime/internal/domain"
)

type fakeSource struct {
	calendars []caldav.Calendar
	events    map[string][]caldav.Event // by calendar path
	err       error

	queried []string
	from    time.Time
	to      time.Time
}

func (f *fakeSource) DiscoverCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.calendars, nil
}

func (f *fakeSource) GetEvents(ctx context.Context, calendarPath string, from, to time.Time) ([]caldav.Event, error) {
	f.queried = append(f.queried, calendarPath)
	f.from, f.to = from, to
	return f.events[calendarPath], nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calendars: []caldav.Calendar{
			{Path: "/cals/work/", DisplayName: "Work"},
			{Path: "/cals/home/", DisplayName: "Home"},
		},
		events: map[string][]caldav.Event{
			"/cals/work/": {
				{UID: "standup", StartTime: at(10, 0), EndTime: at(11, 0)},
			},
			"/cals/home/": {
				{UID: "dentist", StartTime: at(14, 0), EndTime: at(15, 0)},
				{UID: "birthday", StartTime: at(0, 0), EndTime: at(24, 0), AllDay: true},
			},
		},
	}
}

func TestAvailabilityService_Availability(t *testing.T) {
	src := newFakeSource()
	svc := NewAvailabilityService(src, []string{"Work", "Home"}, time.UTC)

	result, err := svc.Availability(context.Background(), Query{
		From:   at(9, 30),
		Weeks:  1,
		Window: workWindow,
	})
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}

	// Mar 5 through Mar 12 inclusive
	if len(result) != 8 {
		t.Fatalf("expected 8 days, got %d", len(result))
	}
	if result[0].Day != testDay {
		t.Errorf("expected first day %v, got %v", testDay, result[0].Day)
	}
	for i := 1; i < len(result); i++ {
		if !result[i-1].Day.Before(result[i].Day) {
			t.Errorf("days out of order at %d", i)
		}
	}

	want := []domain.FreeInterval{span(8, 0, 10, 0), span(11, 0, 14, 0), span(15, 0, 17, 0)}
	if !reflect.DeepEqual(result[0].Free, want) {
		t.Errorf("free time = %v, want %v", result[0].Free, want)
	}
	for _, d := range result[1:] {
		if !reflect.DeepEqual(d.Free, []domain.FreeInterval{span(8, 0, 17, 0)}) {
			t.Errorf("expected %v fully free, got %v", d.Day, d.Free)
		}
	}

	if !reflect.DeepEqual(src.queried, []string{"/cals/work/", "/cals/home/"}) {
		t.Errorf("unexpected calendars queried: %v", src.queried)
	}
	if !src.from.Equal(at(0, 0)) {
		t.Errorf("expected fetch from start of first day, got %v", src.from)
	}
	if want := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC); !src.to.Equal(want) {
		t.Errorf("expected fetch until end of last day, got %v", src.to)
	}
}

func TestAvailabilityService_UnknownCalendar(t *testing.T) {
	svc := NewAvailabilityService(newFakeSource(), []string{"Work", "Gym"}, time.UTC)

	_, err := svc.Availability(context.Background(), Query{From: at(9, 0), Weeks: 1, Window: workWindow})
	if !errors.Is(err, caldav.ErrCalendarNotFound) {
		t.Fatalf("expected ErrCalendarNotFound, got %v", err)
	}
}

func TestAvailabilityService_SourceError(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("401 Unauthorized")
	svc := NewAvailabilityService(src, []string{"Work"}, time.UTC)

	_, err := svc.Availability(context.Background(), Query{From: at(9, 0), Weeks: 1, Window: workWindow})
	if err == nil || !errors.Is(err, src.err) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
	if len(src.queried) != 0 {
		t.Errorf("no events should be fetched after discovery failure")
	}
}

func TestAvailabilityService_InvalidQuery(t *testing.T) {
	src := newFakeSource()
	svc := NewAvailabilityService(src, []string{"Work"}, time.UTC)

	tests := []Query{
		{From: at(9, 0), Weeks: -1, Window: workWindow},
		{From: at(9, 0), Weeks: 1, Window: domain.Window{Start: domain.TimeOfDay{Hour: 17}, End: domain.TimeOfDay{Hour: 8}}},
		{From: at(9, 0), Weeks: 1, Window: domain.Window{Start: domain.TimeOfDay{Hour: 9}, End: domain.TimeOfDay{Hour: 9}}},
	}
	for _, q := range tests {
		if _, err := svc.Availability(context.Background(), q); err == nil {
			t.Errorf("expected error for %+v", q)
		}
	}
	if len(src.queried) != 0 {
		t.Errorf("invalid queries must not reach the server")
	}
}

func TestAvailabilityService_ListCalendars(t *testing.T) {
	svc := NewAvailabilityService(newFakeSource(), nil, time.UTC)

	cals, err := svc.ListCalendars(context.Background())
	if err != nil {
		t.Fatalf("ListCalendars failed: %v", err)
	}
	want := []domain.Calendar{
		{Path: "/cals/work/", Name: "Work"},
		{Path: "/cals/home/", Name: "Home"},
	}
	if !reflect.DeepEqual(cals, want) {
		t.Errorf("ListCalendars() = %v, want %v", cals, want)
	}
}

func TestQueryDays_ZeroWeeks(t *testing.T) {
	q := Query{From: at(9, 0), Weeks: 0, Window: workWindow}
	days := q.Days(time.UTC)
	if len(days) != 1 || days[0] != testDay {
		t.Errorf("expected only today, got %v", days)
	}
}
