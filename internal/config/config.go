package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const DefaultOrganizerURL = "http://organizer:8000/scan-once"

// Config struct for environment variables.
type Config struct {
	OrganizerURL      string        `envconfig:"ORGANIZER_URL" default:"http://organizer:8000/scan-once"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"INFO"`
	DiscordWebhookURL string        `envconfig:"DISCORD_WEBHOOK_URL"`
	HistoryDBPath     string        `envconfig:"HISTORY_DB_PATH"`
	HistoryRetention  time.Duration `envconfig:"HISTORY_RETENTION" default:"720h"`

	Notify struct {
		MaxAttempts    int           `split_words:"true" default:"5"`
		BackoffStep    time.Duration `split_words:"true" default:"2s"`
		RequestTimeout time.Duration `split_words:"true" default:"10s"`
		SoftFail       bool          `split_words:"true" default:"false"`
		IncludeItem    bool          `split_words:"true" default:"false"`
	}

	// Torrent holds the variables exported by the torrent client when it runs
	// the completion script. Values are opaque and never validated.
	Torrent struct {
		Dir  string
		Name string
		ID   string
		Hash string
	} `envconfig:"TR_TORRENT"`

	Telemetry struct {
		Enabled      bool   `split_words:"true" default:"false"`
		OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
		ServiceName  string `split_words:"true" default:"organizer_hook"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the values envconfig cannot express as struct tags.
func (c *Config) Validate() error {
	u, err := url.Parse(c.OrganizerURL)
	if err != nil {
		return fmt.Errorf("ORGANIZER_URL: %w", err)
	}

	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("ORGANIZER_URL must be an absolute URL, got %q", c.OrganizerURL)
	}

	if c.Notify.MaxAttempts < 1 {
		return errors.New("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}

	if c.Notify.BackoffStep < 0 {
		return errors.New("NOTIFY_BACKOFF_STEP must not be negative")
	}

	if c.Notify.RequestTimeout < 0 {
		return errors.New("NOTIFY_REQUEST_TIMEOUT must not be negative")
	}

	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
