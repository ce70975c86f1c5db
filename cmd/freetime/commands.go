package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tazhate/freetime/config"
	"github.com/tazhate/freetime/internal/clients/caldav"
	"github.com/tazhate/freetime/internal/service"
)

// Context is passed to every command
type Context struct {
	Ctx    context.Context
	Config *config.Config
	In     io.Reader
	Out    io.Writer

	// Source overrides the CalDAV client built from Config
	Source service.EventSource
	// Now overrides the clock
	Now func() time.Time
}

func (c *Context) service() (*service.AvailabilityService, error) {
	src := c.Source
	if src == nil {
		if err := c.Config.ValidateCalDAV(); err != nil {
			return nil, err
		}
		client := caldav.NewClient(c.Config.CalDAVURL, c.Config.CalDAVUsername, c.Config.CalDAVPassword)
		client.SetLocation(c.Config.Timezone)
		src = client
	}
	return service.NewAvailabilityService(src, c.Config.Calendars, c.Config.Timezone), nil
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

type FreeCmd struct {
	NumWeeks     int `name:"num_weeks" short:"n" help:"Number of weeks from today to provide free time for (default from config)." default:"-1"`
	DayStartHour int `name:"day_start_hour" short:"s" help:"Hour the day starts, 0-23 (default from config)." default:"-1"`
	DayEndHour   int `name:"day_end_hour" short:"e" help:"Hour the day ends, 0-23 (default from config)." default:"-1"`
}

func (c *FreeCmd) Validate() error {
	if c.NumWeeks < -1 {
		return fmt.Errorf("num_weeks must not be negative")
	}
	if c.DayStartHour < -1 || c.DayStartHour > 23 {
		return fmt.Errorf("day_start_hour must be between 0 and 23")
	}
	if c.DayEndHour < -1 || c.DayEndHour > 23 {
		return fmt.Errorf("day_end_hour must be between 0 and 23")
	}
	return nil
}

func (c *FreeCmd) Run(ctx *Context) error {
	svc, err := ctx.service()
	if err != nil {
		return err
	}

	weeks := ctx.Config.NumWeeks
	if c.NumWeeks >= 0 {
		weeks = c.NumWeeks
	}

	days, err := svc.Availability(ctx.Ctx, service.Query{
		From:   ctx.now(),
		Weeks:  weeks,
		Window: ctx.Config.Window.WithHours(c.DayStartHour, c.DayEndHour),
	})
	if err != nil {
		return err
	}

	for _, line := range service.FormatAvailability(days) {
		fmt.Fprintln(ctx.Out, line)
	}
	return nil
}

type CalendarsCmd struct{}

func (c *CalendarsCmd) Run(ctx *Context) error {
	svc, err := ctx.service()
	if err != nil {
		return err
	}

	cals, err := svc.ListCalendars(ctx.Ctx)
	if err != nil {
		return err
	}

	for _, cal := range cals {
		fmt.Fprintf(ctx.Out, "%s\t%s\n", cal.Name, cal.Path)
	}
	return nil
}

type PasswordCmd struct {
	Username string `short:"u" help:"CalDAV username (default from config)."`
}

func (c *PasswordCmd) Run(ctx *Context) error {
	username := c.Username
	if username == "" {
		username = ctx.Config.CalDAVUsername
	}
	if username == "" {
		return errors.New("username is required: pass --username or set CALDAV_USERNAME")
	}

	fmt.Fprintf(ctx.Out, "Password for %s: ", username)
	line, err := bufio.NewReader(ctx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}

	if err := config.StorePassword(username, strings.TrimRight(line, "\r\n")); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "Stored.")
	return nil
}
