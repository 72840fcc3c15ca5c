package main

import (
	"flag"
	"io"
	"strconv"

	"github.com/jusunglee/departures-go/pkg/departures"
	"github.com/pkg/errors"
)

type lookupEnvFunc func(string) (string, bool)

// loadConfig resolves configuration with precedence
// flags > environment > TOML file > defaults
func loadConfig(args []string, lookupEnv lookupEnvFunc, errOut io.Writer) (departures.Config, error) {
	defaults := departures.DefaultConfig()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var (
		configFile = fs.String("config", "", "TOML configuration file")
		sourceURL  = fs.String("url", defaults.SourceURL, "Departures CSV feed URL")
		timeZone   = fs.String("timezone", defaults.TimeZone, "IANA time zone for departure times")
		port       = fs.Int("port", defaults.Port, "Server port")
		timeout    = fs.Duration("fetch-timeout", defaults.FetchTimeout, "Feed download timeout")
		logLevel   = fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
		metrics    = fs.Bool("metrics", defaults.MetricsEnabled, "Expose Prometheus metrics on /metrics")
	)
	if err := fs.Parse(args); err != nil {
		return departures.Config{}, err
	}

	cfg := defaults
	if *configFile != "" {
		var err error
		cfg, err = departures.LoadConfigFile(*configFile, cfg)
		if err != nil {
			return departures.Config{}, err
		}
	}

	// Fallback to environment variables for values not given as flags
	if v, ok := lookupEnv("DEPARTURES_URL"); ok && v != "" {
		cfg.SourceURL = v
	}
	if v, ok := lookupEnv("DEPARTURES_TIMEZONE"); ok && v != "" {
		cfg.TimeZone = v
	}
	if v, ok := lookupEnv("PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return departures.Config{}, errors.Wrapf(err, "invalid PORT %q", v)
		}
		cfg.Port = p
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.SourceURL = *sourceURL
		case "timezone":
			cfg.TimeZone = *timeZone
		case "port":
			cfg.Port = *port
		case "fetch-timeout":
			cfg.FetchTimeout = *timeout
		case "log-level":
			cfg.LogLevel = *logLevel
		case "metrics":
			cfg.MetricsEnabled = *metrics
		}
	})

	if err := cfg.Validate(); err != nil {
		return departures.Config{}, err
	}
	return cfg, nil
}
