// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"

	"github.com/wneessen/soil-temperature/internal/logger"
	"github.com/wneessen/soil-temperature/internal/soil"
)

const (
	configEnv = "SOILTEMPERATURE"
	configDir = "soil-temperature"

	// LocalTimezone selects the time zone of the host.
	LocalTimezone = "Local"

	// DefaultScanInterval is the refresh interval in minutes if none is configured.
	DefaultScanInterval = 60
	// MaxScanInterval is one week in minutes.
	MaxScanInterval = 7 * 24 * 60
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application's configuration structure.
type Config struct {
	LogLevel slog.Level `fig:"loglevel" default:"0"`
	// Allowed values: text, json, color
	LogFormat string `fig:"logformat" default:"text"`
	// Allowed values: imperial, metric
	Units string `fig:"units" default:"imperial"`
	// Refresh interval in minutes. No default tag, fig would replace an explicit 0.
	ScanInterval        int  `fig:"scan_interval"`
	DisableSleepMonitor bool `fig:"disable_sleep_monitor"`

	Location struct {
		Latitude  float64 `fig:"latitude"`
		Longitude float64 `fig:"longitude"`
		// IANA time zone name that defines "today" for the daily summary
		Timezone string `fig:"timezone" default:"Local"`
	} `fig:"location"`

	API struct {
		BaseURL string        `fig:"base_url" default:"https://soiltemperature.app/api"`
		Timeout time.Duration `fig:"timeout" default:"30s"`
	} `fig:"api"`

	Server struct {
		Listen  string `fig:"listen" default:"127.0.0.1:8089"`
		Disable bool   `fig:"disable"`
		// Minimum time between two manually requested refreshes
		RefreshRate time.Duration `fig:"refresh_rate" default:"1m"`
	} `fig:"server"`

	MQTT struct {
		// Broker URL, e.g. tcp://127.0.0.1:1883. Publishing is disabled if empty.
		Broker string `fig:"broker"`
		// A random client id is generated if empty
		ClientID    string `fig:"client_id"`
		TopicPrefix string `fig:"topic_prefix" default:"soil-temperature"`
		Username    string `fig:"username"`
		Password    string `fig:"password"`
	} `fig:"mqtt"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := newConfig()
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("%w: failed to load Config: %w", ErrInvalid, err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := newConfig()
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("%w: failed to load Config: %w", ErrInvalid, err)
	}

	return conf, conf.Validate()
}

// newConfig returns a Config with the defaults fig cannot express. fig only overwrites the
// values present in the file or environment.
func newConfig() *Config {
	return &Config{ScanInterval: DefaultScanInterval}
}

// Load reads the config from the given file, or from the environment only if file is empty.
func Load(file string) (*Config, error) {
	if file == "" {
		return New()
	}
	return NewFromFile(filepath.Dir(file), filepath.Base(file))
}

// FindConfigFile returns the first config file found in the user's config directory.
func FindConfigFile() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, ext := range []string{"toml", "yaml", "yml", "json"} {
		path := filepath.Join(homedir, ".config", configDir, "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if _, err := soil.ParseUnitSystem(c.Units); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON, logger.FormatColor:
	default:
		return fmt.Errorf("%w: invalid log format: %s", ErrInvalid, c.LogFormat)
	}
	if c.ScanInterval < 1 || c.ScanInterval > MaxScanInterval {
		return fmt.Errorf("%w: scan interval must be between 1 and %d minutes, got %d", ErrInvalid,
			MaxScanInterval, c.ScanInterval)
	}

	// 0/0 is the zero value of an unset location and no place to grow anything
	if c.Location.Latitude == 0 && c.Location.Longitude == 0 {
		return fmt.Errorf("%w: location latitude and longitude are required", ErrInvalid)
	}
	if !c.Coordinates().Valid() {
		return fmt.Errorf("%w: coordinates out of range: %f, %f", ErrInvalid, c.Location.Latitude,
			c.Location.Longitude)
	}
	if _, err := c.TimeLocation(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := validateURL(c.API.BaseURL, "http", "https"); err != nil {
		return fmt.Errorf("%w: invalid API base URL: %w", ErrInvalid, err)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("%w: API timeout must be positive", ErrInvalid)
	}
	if c.Server.RefreshRate <= 0 {
		return fmt.Errorf("%w: server refresh rate must be positive", ErrInvalid)
	}
	if !c.Server.Disable && c.Server.Listen == "" {
		return fmt.Errorf("%w: server listen address is required", ErrInvalid)
	}
	if c.MQTT.Broker != "" {
		if err := validateURL(c.MQTT.Broker, "tcp", "mqtt", "ssl", "tls", "mqtts", "ws", "wss"); err != nil {
			return fmt.Errorf("%w: invalid MQTT broker URL: %w", ErrInvalid, err)
		}
	}

	return nil
}

// Coordinates returns the configured location.
func (c *Config) Coordinates() soil.Coordinates {
	return soil.Coordinates{Lat: c.Location.Latitude, Lon: c.Location.Longitude}
}

// UnitSystem returns the configured unit system, imperial if invalid.
func (c *Config) UnitSystem() soil.UnitSystem {
	units, err := soil.ParseUnitSystem(c.Units)
	if err != nil {
		return soil.UnitsImperial
	}
	return units
}

// Interval returns the refresh interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.ScanInterval) * time.Minute
}

// TimeLocation returns the time zone that defines the calendar day for the summary.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Location.Timezone == "" || strings.EqualFold(c.Location.Timezone, LocalTimezone) {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone: %w", err)
	}
	return loc, nil
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			if parsed.Host == "" {
				return fmt.Errorf("missing host in %q", raw)
			}
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme in %q", raw)
}
