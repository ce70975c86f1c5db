package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/tazhate/freetime/config"
)

// App is the command-line surface
type App struct {
	Version kong.VersionFlag

	Free      FreeCmd      `cmd:"" help:"Print free time in the working window for the coming weeks." default:"withargs"`
	Calendars CalendarsCmd `cmd:"" help:"List calendars available on the CalDAV server."`
	Password  PasswordCmd  `cmd:"" help:"Store the CalDAV password in the OS keyring."`
}

var CLI App

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("freetime"),
		kong.Description("Find free time in your CalDAV calendars"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &Context{
		Ctx:    ctx,
		Config: cfg,
		In:     os.Stdin,
		Out:    os.Stdout,
	}

	if err := kctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
