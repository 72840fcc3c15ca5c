package departures

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jusunglee/departures-go/internal/feed"
	"github.com/jusunglee/departures-go/internal/models"
	"github.com/jusunglee/departures-go/internal/telemetry"
	"github.com/pkg/errors"
)

// RemoteClient implements the Client interface by fetching the CSV feed on
// every call. Nothing is cached between calls.
type RemoteClient struct {
	fetcher  *feed.Fetcher
	url      string
	timeZone string
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

type Option struct {
	f func(*RemoteClient)
}

// WithHTTPClient replaces the HTTP client built from Config.FetchTimeout
func WithHTTPClient(c *http.Client) Option {
	return Option{func(rc *RemoteClient) {
		rc.fetcher = feed.NewFetcher(c)
	}}
}

// WithMetrics records every fetch on m
func WithMetrics(m *telemetry.Metrics) Option {
	return Option{func(rc *RemoteClient) {
		rc.metrics = m
	}}
}

// WithLogger sets the logger used for debug output
func WithLogger(l *slog.Logger) Option {
	return Option{func(rc *RemoteClient) {
		rc.logger = l
	}}
}

// NewRemote validates cfg and creates a client for its feed
func NewRemote(cfg Config, options ...Option) (*RemoteClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &RemoteClient{
		fetcher:  feed.NewFetcher(&http.Client{Timeout: cfg.FetchTimeout}),
		url:      cfg.SourceURL,
		timeZone: cfg.TimeZone,
		logger:   slog.Default(),
	}
	for _, option := range options {
		option.f(c)
	}

	return c, nil
}

// GetDepartures fetches and transforms the feed. Errors from the pipeline are
// returned unchanged.
func (c *RemoteClient) GetDepartures(ctx context.Context) ([]models.Departure, error) {
	start := time.Now()
	departures, err := c.fetcher.FetchDepartures(ctx, c.url, c.timeZone)
	elapsed := time.Since(start)

	c.metrics.ObserveFetch(Outcome(err), elapsed, len(departures))
	if err != nil {
		return nil, err
	}

	c.logger.Debug("departures fetched",
		slog.String("url", c.url),
		slog.Int("count", len(departures)),
		slog.Duration("duration", elapsed))

	return departures, nil
}

// Outcome classifies a pipeline error for metrics and status mapping
func Outcome(err error) string {
	var fetchErr *feed.FetchError
	var parseErr *feed.ParseError

	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.As(err, &fetchErr):
		return telemetry.OutcomeFetchError
	case errors.As(err, &parseErr):
		return telemetry.OutcomeParseError
	}
	return telemetry.OutcomeError
}
