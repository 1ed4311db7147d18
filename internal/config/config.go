package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"dualcal/internal/calendar"
)

// ErrEmptyPath is returned by Load and Save when no path is given.
var ErrEmptyPath = errors.New("config path is empty")

// ICSConfig describes a single ICS subscription whose events annotate
// the day cells.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url" validate:"required,url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info error DEBUG INFO ERROR"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=console json"`
}

type RateLimitConfig struct {
	// RPS is the sustained request rate; 0 disables limiting.
	RPS   float64 `yaml:"rps" json:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" json:"burst" validate:"gte=0"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is an IANA zone name. Empty means the host's local time.
	Timezone string `yaml:"timezone" json:"timezone" validate:"omitempty,timezone"`

	// Primary is the calendar system new views start with:
	// "gregorian" (default) or "jalali".
	Primary string `yaml:"primary" json:"primary" validate:"oneof=gregorian jalali"`

	// WeekStart is the first weekday of Gregorian weeks:
	//   - "sunday" (default)
	//   - "monday"
	//   - "saturday"
	// Jalali weeks always start on Saturday.
	WeekStart string `yaml:"week_start" json:"week_start" validate:"oneof=sunday monday saturday"`

	// RefreshCron is the cron schedule for re-fetching ICS feeds.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"required"`

	ICS []ICSConfig `yaml:"ics" json:"ics" validate:"dive"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Log       LogConfig       `yaml:"log" json:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "",
		Primary:     "gregorian",
		WeekStart:   "sunday",
		RefreshCron: "*/30 * * * *",
		ICS:         []ICSConfig{},
		BasicAuth:   nil,
		Log:         LogConfig{Level: "info", Format: "console"},
		RateLimit:   RateLimitConfig{RPS: 20, Burst: 40},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	c.Primary = strings.ToLower(strings.TrimSpace(c.Primary))
	if sys, err := calendar.ParseSystem(c.Primary); err == nil {
		c.Primary = sys.String()
	} else if c.Primary == "" {
		c.Primary = "gregorian"
	}

	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart == "" {
		c.WeekStart = "sunday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/30 * * * *"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			if c.ICS[i].Name != "" {
				c.ICS[i].ID = c.ICS[i].Name
			} else {
				c.ICS[i].ID = c.ICS[i].URL
			}
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks the struct tags; an unknown primary system, week start
// or malformed ICS URL is rejected rather than silently replaced.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// PrimarySystem returns the configured primary calendar system.
func (c *Config) PrimarySystem() calendar.System {
	sys, err := calendar.ParseSystem(c.Primary)
	if err != nil {
		return calendar.Gregorian
	}
	return sys
}

// GregorianWeekStart maps WeekStart to a time.Weekday.
func (c *Config) GregorianWeekStart() time.Weekday {
	switch c.WeekStart {
	case "monday":
		return time.Monday
	case "saturday":
		return time.Saturday
	default:
		return time.Sunday
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Calendars builds the adapter pair for this config.
func (c *Config) Calendars() *calendar.Calendars {
	return calendar.NewCalendars(c.Location(), c.GregorianWeekStart())
}

// ApplyEnv overrides file values with DUALCAL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DUALCAL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("DUALCAL_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("DUALCAL_PRIMARY"); v != "" {
		c.Primary = v
	}
	if v := os.Getenv("DUALCAL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dualcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
