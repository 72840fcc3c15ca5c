package departures

import (
	"context"
	"net/url"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jusunglee/departures-go/internal/logging"
	"github.com/jusunglee/departures-go/internal/models"
	"github.com/pkg/errors"
)

// Client defines the interface for retrieving the departure board
type Client interface {
	GetDepartures(ctx context.Context) ([]models.Departure, error)
}

// Defaults for the MBTA commuter rail feed
const (
	DefaultURL      = "http://developer.mbta.com/lib/gtrtfs/Departures.csv"
	DefaultTimeZone = "America/New_York"
	DefaultPort     = 3000
)

// Config holds configuration for the service.
// TimeZone is an IANA zone name used for every rendered clock time.
type Config struct {
	SourceURL      string
	TimeZone       string
	Port           int
	FetchTimeout   time.Duration
	LogLevel       string
	MetricsEnabled bool
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		SourceURL:      DefaultURL,
		TimeZone:       DefaultTimeZone,
		Port:           DefaultPort,
		FetchTimeout:   10 * time.Second,
		LogLevel:       "info",
		MetricsEnabled: true,
	}
}

// Validate checks the config before the server starts
func (cfg Config) Validate() error {
	u, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return errors.Wrap(err, "invalid source url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("source url must be an absolute http(s) url, got %q", cfg.SourceURL)
	}
	if _, err := models.LoadLocation(cfg.TimeZone); err != nil {
		return errors.Wrap(err, "invalid time zone")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.FetchTimeout <= 0 {
		return errors.Errorf("fetch timeout must be positive, got %s", cfg.FetchTimeout)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// ConfigFile is the TOML representation of Config. Unset keys keep the
// value they are merged onto.
type ConfigFile struct {
	URL            string `toml:"url"`
	TimeZone       string `toml:"timezone"`
	Port           int    `toml:"port"`
	FetchTimeout   string `toml:"fetch_timeout"`
	LogLevel       string `toml:"log_level"`
	MetricsEnabled *bool  `toml:"metrics"`
}

// LoadConfigFile reads a TOML file at path and merges it over base
func LoadConfigFile(path string, base Config) (Config, error) {
	var file ConfigFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return Config{}, errors.Wrapf(err, "cannot read config file %s", path)
	}
	return file.Merge(base)
}

// Merge applies the keys set in the file over base
func (f ConfigFile) Merge(base Config) (Config, error) {
	cfg := base
	if f.URL != "" {
		cfg.SourceURL = f.URL
	}
	if f.TimeZone != "" {
		cfg.TimeZone = f.TimeZone
	}
	if f.Port != 0 {
		cfg.Port = f.Port
	}
	if f.FetchTimeout != "" {
		d, err := time.ParseDuration(f.FetchTimeout)
		if err != nil {
			return Config{}, errors.Wrap(err, "invalid fetch_timeout")
		}
		cfg.FetchTimeout = d
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.MetricsEnabled != nil {
		cfg.MetricsEnabled = *f.MetricsEnabled
	}
	return cfg, nil
}
