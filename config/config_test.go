package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/tazhate/freetime/internal/domain"
)

var envKeys = []string{
	"FREETIME_CONFIG", "CALDAV_URL", "CALDAV_USERNAME", "CALDAV_PASSWORD", "CALDAV_CALENDARS",
	"NUM_WEEKS", "DAY_START", "DAY_END", "TIMEZONE", "TELEGRAM_BOT_TOKEN", "OWNER_TELEGRAM_ID",
	"PARTNER_TELEGRAM_ID", "DATABASE_PATH", "WEBHOOK_URL", "SERVER_PORT", "DIGEST_TIME",
	"API_USERNAME", "API_PASSWORD",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	gokeyring.MockInit()
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CalDAVURL != "https://caldav.icloud.com" {
		t.Errorf("unexpected URL: %q", cfg.CalDAVURL)
	}
	if !reflect.DeepEqual(cfg.Calendars, []string{"Work"}) {
		t.Errorf("unexpected calendars: %v", cfg.Calendars)
	}
	if cfg.NumWeeks != 2 {
		t.Errorf("unexpected weeks: %d", cfg.NumWeeks)
	}
	want := domain.Window{Start: domain.TimeOfDay{Hour: 8}, End: domain.TimeOfDay{Hour: 17}}
	if cfg.Window != want {
		t.Errorf("unexpected window: %v", cfg.Window)
	}
	if cfg.Timezone != time.Local {
		t.Errorf("expected local timezone, got %v", cfg.Timezone)
	}
	if err := cfg.ValidateCalDAV(); err == nil {
		t.Error("expected ValidateCalDAV to require credentials")
	}
}

func TestLoad_Env(t *testing.T) {
	gokeyring.MockInit()
	clearEnv(t)
	t.Setenv("CALDAV_URL", "https://dav.example.com")
	t.Setenv("CALDAV_USERNAME", "alice")
	t.Setenv("CALDAV_PASSWORD", "secret")
	t.Setenv("CALDAV_CALENDARS", "Work, Family ,")
	t.Setenv("NUM_WEEKS", "3")
	t.Setenv("DAY_START", "09:30")
	t.Setenv("DAY_END", "18:00")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CalDAVURL != "https://dav.example.com" || cfg.CalDAVUsername != "alice" || cfg.CalDAVPassword != "secret" {
		t.Errorf("unexpected credentials: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Calendars, []string{"Work", "Family"}) {
		t.Errorf("unexpected calendars: %v", cfg.Calendars)
	}
	if cfg.NumWeeks != 3 {
		t.Errorf("unexpected weeks: %d", cfg.NumWeeks)
	}
	if cfg.Window.Start != (domain.TimeOfDay{Hour: 9, Minute: 30}) || cfg.Window.End != (domain.TimeOfDay{Hour: 18}) {
		t.Errorf("unexpected window: %v", cfg.Window)
	}
	if cfg.Timezone.String() != "UTC" {
		t.Errorf("unexpected timezone: %v", cfg.Timezone)
	}
	if err := cfg.ValidateCalDAV(); err != nil {
		t.Errorf("ValidateCalDAV failed: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"NUM_WEEKS", "two"},
		{"NUM_WEEKS", "-1"},
		{"DAY_START", "8am"},
		{"DAY_END", "07:00"},
		{"TIMEZONE", "Mars/Olympus_Mons"},
		{"OWNER_TELEGRAM_ID", "me"},
		{"DIGEST_TIME", "morning"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			gokeyring.MockInit()
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_YAMLFileWithEnvOverride(t *testing.T) {
	gokeyring.MockInit()
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "freetime.yaml")
	data := []byte(`caldav_url: https://file.example.com
caldav_username: bob
calendars: [Work, Side]
num_weeks: 4
day_start: "07:00"
day_end: "15:00"
owner_telegram_id: 42
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FREETIME_CONFIG", path)
	t.Setenv("NUM_WEEKS", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CalDAVURL != "https://file.example.com" || cfg.CalDAVUsername != "bob" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Calendars, []string{"Work", "Side"}) {
		t.Errorf("unexpected calendars: %v", cfg.Calendars)
	}
	if cfg.NumWeeks != 1 {
		t.Errorf("env should override file, got %d weeks", cfg.NumWeeks)
	}
	if cfg.Window.Start.Hour != 7 || cfg.Window.End.Hour != 15 {
		t.Errorf("unexpected window: %v", cfg.Window)
	}
	if cfg.OwnerTelegramID != 42 {
		t.Errorf("unexpected owner: %d", cfg.OwnerTelegramID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	gokeyring.MockInit()
	clearEnv(t)
	t.Setenv("FREETIME_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_PasswordFromKeyring(t *testing.T) {
	gokeyring.MockInit()
	clearEnv(t)
	t.Setenv("CALDAV_USERNAME", "carol")

	if err := StorePassword("carol", "from-keyring"); err != nil {
		t.Fatalf("StorePassword failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CalDAVPassword != "from-keyring" {
		t.Errorf("expected keyring password, got %q", cfg.CalDAVPassword)
	}

	t.Setenv("CALDAV_PASSWORD", "from-env")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CalDAVPassword != "from-env" {
		t.Errorf("env password should win, got %q", cfg.CalDAVPassword)
	}
}

func TestKeyringErrors(t *testing.T) {
	gokeyring.MockInit()

	if _, err := PasswordFromKeyring("nobody"); !errors.Is(err, ErrPasswordNotFound) {
		t.Errorf("expected ErrPasswordNotFound, got %v", err)
	}
	if err := StorePassword("", "x"); err == nil {
		t.Error("expected error for empty username")
	}
	if err := StorePassword("dave", ""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestValidateBot(t *testing.T) {
	cfg := Default()
	cfg.CalDAVUsername = "alice"
	cfg.CalDAVPassword = "secret"

	if err := cfg.ValidateBot(); err == nil {
		t.Error("expected error without telegram token")
	}

	cfg.TelegramToken = "token"
	cfg.OwnerTelegramID = 1
	cfg.WebhookURL = "https://bot.example.com"
	if err := cfg.ValidateBot(); err != nil {
		t.Errorf("ValidateBot failed: %v", err)
	}
}

func TestIsAllowedUser(t *testing.T) {
	cfg := &Config{OwnerTelegramID: 1}
	if !cfg.IsAllowedUser(1) {
		t.Error("owner must be allowed")
	}
	if cfg.IsAllowedUser(0) {
		t.Error("zero id must not be allowed when no partner is set")
	}
	cfg.PartnerTelegramID = 2
	if !cfg.IsAllowedUser(2) || cfg.IsAllowedUser(3) {
		t.Error("partner handling is wrong")
	}
}
