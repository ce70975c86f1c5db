package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tazhate/freetime/internal/domain"
)

type Config struct {
	// CalDAV
	CalDAVURL      string   `yaml:"caldav_url"`
	CalDAVUsername string   `yaml:"caldav_username"`
	CalDAVPassword string   `yaml:"-"`
	Calendars      []string `yaml:"calendars"`

	// Availability defaults
	NumWeeks     int    `yaml:"num_weeks"`
	DayStart     string `yaml:"day_start"`
	DayEnd       string `yaml:"day_end"`
	TimezoneName string `yaml:"timezone"`

	Timezone *time.Location `yaml:"-"`
	Window   domain.Window  `yaml:"-"`

	// Telegram bot
	TelegramToken     string `yaml:"-"`
	OwnerTelegramID   int64  `yaml:"owner_telegram_id"`
	PartnerTelegramID int64  `yaml:"partner_telegram_id"`
	DatabasePath      string `yaml:"database_path"`
	WebhookURL        string `yaml:"webhook_url"`
	ServerPort        string `yaml:"server_port"`
	DigestTime        string `yaml:"digest_time"`
	APIUsername       string `yaml:"api_username"`
	APIPassword       string `yaml:"-"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		CalDAVURL:    "https://caldav.icloud.com",
		Calendars:    []string{"Work"},
		NumWeeks:     2,
		DayStart:     "08:00",
		DayEnd:       "17:00",
		DatabasePath: "./data/freetime.db",
		ServerPort:   "8080",
		DigestTime:   "08:00",
	}
}

// Load builds the configuration from an optional YAML file named by
// FREETIME_CONFIG and from environment variables, which take precedence.
// A missing CalDAV password is looked up in the OS keyring
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("FREETIME_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if cfg.CalDAVPassword == "" && cfg.CalDAVUsername != "" {
		// Keyring may be unavailable on headless hosts; ValidateCalDAV
		// reports the missing password
		if password, err := PasswordFromKeyring(cfg.CalDAVUsername); err == nil {
			cfg.CalDAVPassword = password
		}
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.CalDAVURL, "CALDAV_URL")
	setString(&c.CalDAVUsername, "CALDAV_USERNAME")
	setString(&c.CalDAVPassword, "CALDAV_PASSWORD")
	if v := os.Getenv("CALDAV_CALENDARS"); v != "" {
		c.Calendars = splitList(v)
	}

	if v := os.Getenv("NUM_WEEKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NUM_WEEKS must be a number")
		}
		c.NumWeeks = n
	}
	setString(&c.DayStart, "DAY_START")
	setString(&c.DayEnd, "DAY_END")
	setString(&c.TimezoneName, "TIMEZONE")

	setString(&c.TelegramToken, "TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("OWNER_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("OWNER_TELEGRAM_ID must be a number")
		}
		c.OwnerTelegramID = id
	}
	if v := os.Getenv("PARTNER_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PARTNER_TELEGRAM_ID must be a number")
		}
		c.PartnerTelegramID = id
	}
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.WebhookURL, "WEBHOOK_URL")
	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.DigestTime, "DIGEST_TIME")
	setString(&c.APIUsername, "API_USERNAME")
	setString(&c.APIPassword, "API_PASSWORD")
	return nil
}

// resolve parses the derived fields
func (c *Config) resolve() error {
	if c.NumWeeks < 0 {
		return fmt.Errorf("NUM_WEEKS must not be negative")
	}

	c.Timezone = time.Local
	if c.TimezoneName != "" {
		tz, err := time.LoadLocation(c.TimezoneName)
		if err != nil {
			return fmt.Errorf("invalid TIMEZONE: %w", err)
		}
		c.Timezone = tz
	}

	start, err := domain.ParseTimeOfDay(c.DayStart)
	if err != nil {
		return fmt.Errorf("invalid DAY_START: %w", err)
	}
	end, err := domain.ParseTimeOfDay(c.DayEnd)
	if err != nil {
		return fmt.Errorf("invalid DAY_END: %w", err)
	}
	c.Window = domain.Window{Start: start, End: end}
	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("invalid working window: %w", err)
	}

	if _, err := domain.ParseTimeOfDay(c.DigestTime); err != nil {
		return fmt.Errorf("invalid DIGEST_TIME: %w", err)
	}
	return nil
}

// ValidateCalDAV checks what is needed to talk to the calendar server
func (c *Config) ValidateCalDAV() error {
	if c.CalDAVURL == "" {
		return fmt.Errorf("CALDAV_URL is required")
	}
	if c.CalDAVUsername == "" {
		return fmt.Errorf("CALDAV_USERNAME is required")
	}
	if c.CalDAVPassword == "" {
		return fmt.Errorf("CALDAV_PASSWORD is required (or store it in the keyring with `freetime password`)")
	}
	if len(c.Calendars) == 0 {
		return fmt.Errorf("CALDAV_CALENDARS is required")
	}
	return nil
}

// ValidateBot checks what is needed to run the Telegram bot
func (c *Config) ValidateBot() error {
	if err := c.ValidateCalDAV(); err != nil {
		return err
	}
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.OwnerTelegramID == 0 {
		return fmt.Errorf("OWNER_TELEGRAM_ID is required and must be a number")
	}
	if c.WebhookURL == "" {
		return fmt.Errorf("WEBHOOK_URL is required")
	}
	return nil
}

func (c *Config) IsAllowedUser(telegramID int64) bool {
	return telegramID == c.OwnerTelegramID || (c.PartnerTelegramID != 0 && telegramID == c.PartnerTelegramID)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
