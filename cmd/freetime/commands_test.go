package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/tazhate/freetime/config"
	"github.com/tazhate/freetime/internal/clients/caldav"
	"github.com/tazhate/freetime/internal/domain"
)

type stubSource struct {
	events []caldav.Event
}

func (s *stubSource) DiscoverCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	return []caldav.Calendar{{Path: "/work/", DisplayName: "Work"}}, nil
}

func (s *stubSource) GetEvents(ctx context.Context, calendarPath string, from, to time.Time) ([]caldav.Event, error) {
	return s.events, nil
}

// Monday
var today = time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Timezone = time.UTC
	cfg.Window = domain.Window{Start: domain.TimeOfDay{Hour: 8}, End: domain.TimeOfDay{Hour: 17}}
	return cfg
}

func run(t *testing.T, appCtx *Context, args ...string) error {
	t.Helper()
	var app App
	parser, err := kong.New(&app, kong.Name("freetime"), kong.Vars{"version": "test"})
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(appCtx)
}

func newTestContext(events ...caldav.Event) (*Context, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Context{
		Ctx:    context.Background(),
		Config: testConfig(),
		Out:    out,
		Source: &stubSource{events: events},
		Now:    func() time.Time { return today },
	}, out
}

func TestFreeCmd_DefaultCommand(t *testing.T) {
	appCtx, out := newTestContext(caldav.Event{
		UID:       "standup",
		StartTime: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC),
	})

	if err := run(t, appCtx, "-n", "0"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got, want := out.String(), "(Mon) Mar 04, 8am-10am, 11am-5pm\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFreeCmd_HourOverrides(t *testing.T) {
	appCtx, out := newTestContext()

	if err := run(t, appCtx, "free", "--num_weeks", "0", "--day_start_hour", "9", "-e", "12"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got, want := out.String(), "(Mon) Mar 04, 9am-12pm\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFreeCmd_WeeksFromConfig(t *testing.T) {
	appCtx, out := newTestContext()
	appCtx.Config.NumWeeks = 1

	if err := run(t, appCtx); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected 8 days, got %d: %q", len(lines), lines)
	}
	if lines[7] != "(Mon) Mar 11, 8am-5pm" {
		t.Errorf("unexpected last line %q", lines[7])
	}
}

func TestFreeCmd_InvalidFlags(t *testing.T) {
	tests := [][]string{
		{"-s", "24"},
		{"--day_end_hour=-5"},
		{"--num_weeks=-3"},
		{"-s", "17", "-e", "9"},
	}

	for _, args := range tests {
		appCtx, _ := newTestContext()
		if err := run(t, appCtx, args...); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestFreeCmd_RequiresCredentials(t *testing.T) {
	appCtx, _ := newTestContext()
	appCtx.Source = nil

	err := run(t, appCtx, "-n", "0")
	if err == nil || !strings.Contains(err.Error(), "CALDAV_USERNAME") {
		t.Errorf("expected missing username error, got %v", err)
	}
}

func TestCalendarsCmd(t *testing.T) {
	appCtx, out := newTestContext()

	if err := run(t, appCtx, "calendars"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := out.String(); got != "Work\t/work/\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestPasswordCmd(t *testing.T) {
	gokeyring.MockInit()
	appCtx, _ := newTestContext()
	appCtx.Config.CalDAVUsername = "alice"
	appCtx.In = strings.NewReader("hunter2\n")

	if err := run(t, appCtx, "password"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	got, err := config.PasswordFromKeyring("alice")
	if err != nil {
		t.Fatalf("PasswordFromKeyring failed: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("stored %q", got)
	}
}
