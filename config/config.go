package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the dashboard daemon.
type Config struct {
	Environment string `env:"GO_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`

	RosterAPIURL      string        `env:"ROSTER_API_URL"`
	RosterAPISecret   string        `env:"ROSTER_API_SECRET"`
	RosterAPITokenTTL time.Duration `env:"ROSTER_API_TOKEN_TTL" envDefault:"5m"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	DashboardJWTSecret string   `env:"DASHBOARD_JWT_SECRET"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	PickerPerPage         int           `env:"PICKER_PER_PAGE" envDefault:"20"`
	PickerDebounce        time.Duration `env:"PICKER_DEBOUNCE" envDefault:"250ms"`
	PickerScrollThreshold int           `env:"PICKER_SCROLL_THRESHOLD" envDefault:"48"`

	// LockedPaymentMethods are method prefixes whose paid status staff may not undo.
	LockedPaymentMethods []string `env:"LOCKED_PAYMENT_METHODS" envDefault:"stripe,online" envSeparator:","`

	Email EmailConfig
}

// EmailConfig selects and configures the mailer used for roster messages.
type EmailConfig struct {
	Provider              string `env:"EMAIL_PROVIDER" envDefault:"noop"`
	FromAddress           string `env:"EMAIL_FROM_ADDRESS"`
	FromName              string `env:"EMAIL_FROM_NAME"`
	AWSRegion             string `env:"AWS_REGION"`
	AWSAccessKeyID        string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey    string `env:"AWS_SECRET_ACCESS_KEY"`
	SESInsecureSkipVerify bool   `env:"SES_INSECURE_SKIP_VERIFY"`
}

// Load loads configuration from environment variables.
// It attempts to load from .env file if not in production.
func Load() (*Config, error) {
	// In production .env might not exist and we rely on system environment variables.
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn(".env file could not be loaded", "error", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.RosterAPIURL = strings.TrimRight(strings.TrimSpace(c.RosterAPIURL), "/")
	if c.RosterAPIURL == "" {
		return errors.New("ROSTER_API_URL is required")
	}
	if c.PickerPerPage <= 0 {
		return fmt.Errorf("PICKER_PER_PAGE must be positive, got %d", c.PickerPerPage)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	c.LockedPaymentMethods = trimList(c.LockedPaymentMethods)
	c.CORSAllowedOrigins = trimList(c.CORSAllowedOrigins)
	c.Email.Provider = strings.ToLower(strings.TrimSpace(c.Email.Provider))
	return nil
}

// IsProduction reports whether GO_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
