package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	SearchFailures  *prometheus.CounterVec
	SearchCache     *prometheus.CounterVec
	ListingsWritten *prometheus.CounterVec
	LiveSessions    prometheus.Gauge
}

// New registers all collectors under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		SearchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_failures_total",
			Help:      "Full-text sub-searches that failed and were answered empty, by listing kind.",
		}, []string{"kind"}),
		SearchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Search cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		ListingsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_written_total",
			Help:      "Listing writes by kind and operation.",
		}, []string{"kind", "op"}),
		LiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_search_sessions",
			Help:      "Open live search sockets.",
		}),
	}

	m.Registry.MustRegister(
		m.RequestsTotal,
		m.RequestLatency,
		m.SearchFailures,
		m.SearchCache,
		m.ListingsWritten,
		m.LiveSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.RequestLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// SearchFailed counts a sub-search answered empty because of an error.
func (m *Metrics) SearchFailed(kind string) {
	if m == nil {
		return
	}
	m.SearchFailures.WithLabelValues(kind).Inc()
}

// CacheResult counts a search cache lookup.
func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.SearchCache.WithLabelValues(result).Inc()
}

// ListingWritten counts a create, update or delete.
func (m *Metrics) ListingWritten(kind, op string) {
	if m == nil {
		return
	}
	m.ListingsWritten.WithLabelValues(kind, op).Inc()
}

// LiveSessionOpened and LiveSessionClosed track open sockets.
func (m *Metrics) LiveSessionOpened() {
	if m != nil {
		m.LiveSessions.Inc()
	}
}

func (m *Metrics) LiveSessionClosed() {
	if m != nil {
		m.LiveSessions.Dec()
	}
}
