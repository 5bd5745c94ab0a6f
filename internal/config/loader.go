package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures environment driven configuration values for the service.
type Config struct {
	HTTPPort   int           `env:"EVENTCAL_HTTP_PORT" envDefault:"8080"`
	SQLiteDSN  string        `env:"EVENTCAL_SQLITE_DSN" envDefault:"file:eventcal.db"`
	SessionTTL time.Duration `env:"EVENTCAL_SESSION_TTL" envDefault:"24h"`

	// ReminderPollInterval is the cadence of the reminder sweep.
	// ReminderWindow bounds how far back each sweep looks; it must cover at
	// least one full poll interval or reminders can fall between sweeps.
	ReminderPollInterval time.Duration `env:"EVENTCAL_REMINDER_POLL_INTERVAL" envDefault:"60s"`
	ReminderWindow       time.Duration `env:"EVENTCAL_REMINDER_WINDOW" envDefault:"60s"`

	SMTPHost     string `env:"EVENTCAL_SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int    `env:"EVENTCAL_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"EVENTCAL_SMTP_USERNAME"`
	SMTPPassword string `env:"EVENTCAL_SMTP_PASSWORD"`
	SMTPFrom     string `env:"EVENTCAL_SMTP_FROM" envDefault:"noreply@eventcal.local"`
}

// Load parses configuration values from the current process environment and
// validates cross-field constraints.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTPPort <= 0 {
		return fmt.Errorf("EVENTCAL_HTTP_PORT must be positive, got %d", c.HTTPPort)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("EVENTCAL_SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.ReminderPollInterval <= 0 {
		return fmt.Errorf("EVENTCAL_REMINDER_POLL_INTERVAL must be positive, got %s", c.ReminderPollInterval)
	}
	if c.ReminderWindow < c.ReminderPollInterval {
		return fmt.Errorf("EVENTCAL_REMINDER_WINDOW (%s) must cover at least one poll interval (%s)",
			c.ReminderWindow, c.ReminderPollInterval)
	}
	if c.SMTPPort <= 0 {
		return fmt.Errorf("EVENTCAL_SMTP_PORT must be positive, got %d", c.SMTPPort)
	}
	return nil
}
