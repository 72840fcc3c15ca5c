package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes used as the "outcome" label
const (
	OutcomeOK         = "ok"
	OutcomeFetchError = "fetch_error"
	OutcomeParseError = "parse_error"
	OutcomeError      = "error"
)

type Metrics struct {
	FetchSeconds    *prometheus.HistogramVec
	FetchTotal      *prometheus.CounterVec
	DeparturesCount prometheus.Gauge
	HTTPRequests    *prometheus.CounterVec
	HTTPSeconds     *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics registers the service metrics plus Go runtime and process
// collectors on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	metrics := &Metrics{
		FetchSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "departures_fetch_seconds",
				Help:    "Time to fetch and parse the departures feed",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "departures_fetch_total",
				Help: "Departures feed fetches by outcome",
			},
			[]string{"outcome"},
		),
		DeparturesCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "departures_last_count",
				Help: "Number of departures in the most recent successful fetch",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "departures_http_requests_total",
				Help: "HTTP requests served by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		HTTPSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "departures_http_request_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		registry: registry,
	}

	registry.MustRegister(
		metrics.FetchSeconds,
		metrics.FetchTotal,
		metrics.DeparturesCount,
		metrics.HTTPRequests,
		metrics.HTTPSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return metrics
}

// ObserveFetch records one pipeline run
func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration, departures int) {
	if m == nil {
		return
	}
	m.FetchSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
	m.FetchTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.DeparturesCount.Set(float64(departures))
	}
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPSeconds.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
