package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jusunglee/departures-go/internal/logging"
	"github.com/jusunglee/departures-go/internal/models"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single feed download
const DefaultTimeout = 30 * time.Second

// FetchError reports a non-success HTTP status from the feed endpoint
type FetchError struct {
	URL        string
	StatusCode int
	StatusText string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Error fetching %s: %d %s", e.URL, e.StatusCode, e.StatusText)
}

// Fetcher downloads and transforms the departures feed. It holds no state
// besides the HTTP client and is safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a fetcher. A nil client gets one with DefaultTimeout.
func NewFetcher(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{httpClient: httpClient}
}

var defaultFetcher = NewFetcher(nil)

// FetchDepartures fetches url and returns its rows as departures localized to timeZone
func FetchDepartures(ctx context.Context, url, timeZone string) ([]models.Departure, error) {
	return defaultFetcher.FetchDepartures(ctx, url, timeZone)
}

// FetchDepartures fetches url and returns its rows as departures localized to
// timeZone. The zone is resolved before any network I/O.
func (f *Fetcher) FetchDepartures(ctx context.Context, url, timeZone string) ([]models.Departure, error) {
	loc, err := models.LoadLocation(timeZone)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	body, err := f.FetchCSV(ctx, url)
	if err != nil {
		return nil, err
	}

	return parseDepartures(body, loc)
}

// FetchCSV performs a GET against url and returns the response body
func (f *Fetcher) FetchCSV(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrapf(err, "cannot create request for %s", url)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "cannot fetch %s", url)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "departures_feed")),
		"http_response_body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			StatusText: reasonPhrase(resp),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read response from %s", url)
	}

	return string(body), nil
}

// reasonPhrase returns the status text the server sent, falling back to the
// standard text for the code
func reasonPhrase(resp *http.Response) string {
	phrase := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	if phrase = strings.TrimSpace(phrase); phrase != "" {
		return phrase
	}
	return http.StatusText(resp.StatusCode)
}
