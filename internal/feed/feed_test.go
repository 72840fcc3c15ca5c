package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const departuresPath = "/lib/gtrtfs/Departures.csv"

// newFeedServer serves body with status at departuresPath
func newFeedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(departuresPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	return httptest.NewServer(mux)
}

func newTestFetcher() (*Fetcher, *http.Transport) {
	transport := &http.Transport{}
	return NewFetcher(&http.Client{Transport: transport, Timeout: 5 * time.Second}), transport
}

func TestFetchDepartures(t *testing.T) {
	defer leaktest.Check(t)()

	srv := newFeedServer(t, http.StatusOK, sampleCSV)
	defer srv.Close()

	f, transport := newTestFetcher()
	defer transport.CloseIdleConnections()

	departures, err := f.FetchDepartures(context.Background(), srv.URL+departuresPath, "America/New_York")
	require.NoError(t, err)
	require.Len(t, departures, 3)

	first := departures[0]
	assert.Equal(t, "7:35 PM", first.CurrentTime)
	assert.Equal(t, "7:55 PM", first.ScheduledTime)
	assert.Equal(t, "North Station", first.Origin)
	assert.Equal(t, 1411, first.Trip)
	assert.Equal(t, "Wachusett", first.Destination)
	assert.Equal(t, "-", first.Track)
	assert.Equal(t, "On Time", first.StatusText)
}

func TestFetchDeparturesDefaultFetcher(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, sampleCSV)
	defer srv.Close()

	departures, err := FetchDepartures(context.Background(), srv.URL+departuresPath, "America/Los_Angeles")
	require.NoError(t, err)
	require.Len(t, departures, 3)
	assert.Equal(t, "4:35 PM", departures[0].CurrentTime)
	assert.Equal(t, "-", departures[0].Track)

	_, err = FetchDepartures(context.Background(), srv.URL+"/missing.csv", "America/Los_Angeles")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestFetchDeparturesNotFound(t *testing.T) {
	defer leaktest.Check(t)()

	srv := newFeedServer(t, http.StatusNotFound, "Not Found")
	defer srv.Close()

	f, transport := newTestFetcher()
	defer transport.CloseIdleConnections()

	url := srv.URL + departuresPath
	departures, err := f.FetchDepartures(context.Background(), url, "America/New_York")
	require.Error(t, err)
	assert.Nil(t, departures)
	assert.Equal(t, "Error fetching "+url+": 404 Not Found", err.Error())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, url, fetchErr.URL)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, "Not Found", fetchErr.StatusText)
}

func TestFetchCSVStatusCodes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		expectError bool
		statusText  string
	}{
		{"ok", http.StatusOK, false, ""},
		{"non-authoritative is still success", http.StatusNonAuthoritativeInfo, false, ""},
		{"unauthorized", http.StatusUnauthorized, true, "Unauthorized"},
		{"server error", http.StatusInternalServerError, true, "Internal Server Error"},
		{"service unavailable", http.StatusServiceUnavailable, true, "Service Unavailable"},
		{"non-standard code", 520, true, "status code 520"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFeedServer(t, tt.status, header)
			defer srv.Close()

			url := srv.URL + departuresPath
			body, err := NewFetcher(srv.Client()).FetchCSV(context.Background(), url)
			if !tt.expectError {
				require.NoError(t, err)
				assert.Equal(t, header, body)
				return
			}

			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Equal(t, tt.statusText, fetchErr.StatusText)
			assert.Equal(t, "Error fetching "+url+": "+strconv.Itoa(tt.status)+" "+tt.statusText, err.Error())
		})
	}
}

func TestFetchDeparturesPropagatesParseError(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, header+"\n1520894926,\"broken\n")
	defer srv.Close()

	departures, err := NewFetcher(srv.Client()).FetchDepartures(context.Background(), srv.URL+departuresPath, "America/New_York")
	assert.Nil(t, departures)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestFetchDeparturesBadTimeZoneSkipsFetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client()).FetchDepartures(context.Background(), srv.URL, "Not/AZone")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Zero(t, hits.Load())
}

func TestFetchCSVTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + departuresPath
	srv.Close()

	_, err := NewFetcher(nil).FetchCSV(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot fetch "+url)

	var fetchErr *FetchError
	assert.False(t, errors.As(err, &fetchErr))
}

func TestFetchCSVInvalidURL(t *testing.T) {
	_, err := NewFetcher(nil).FetchCSV(context.Background(), "://missing-scheme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot create request")
}

func TestFetchCSVContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewFetcher(srv.Client()).FetchCSV(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchDeparturesConcurrentCallers(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, sampleCSV)
	defer srv.Close()

	f := NewFetcher(srv.Client())

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			departures, err := f.FetchDepartures(context.Background(), srv.URL+departuresPath, "America/New_York")
			if err == nil && len(departures) != 3 {
				err = errors.New("unexpected departure count")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
