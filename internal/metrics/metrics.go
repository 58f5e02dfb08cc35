package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the storefront's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	upstreamFetch   *prometheus.HistogramVec
	reviewsPosted   prometheus.Counter
	rateLimited     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	upstreamFetch := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_catalog_fetch_duration_seconds",
		Help:    "Duration of catalog source reads",
		Buckets: prometheus.DefBuckets,
	}, []string{"source", "result"})

	reviewsPosted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_reviews_posted_total",
		Help: "Reviews accepted by the marketplace",
	})

	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_rate_limited_total",
		Help: "Requests rejected by the per-client limiter",
	}, []string{"route"})

	registry.MustRegister(
		requestDuration, requestTotal, upstreamFetch, reviewsPosted, rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		upstreamFetch:   upstreamFetch,
		reviewsPosted:   reviewsPosted,
		rateLimited:     rateLimited,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Gauge registers a gauge whose value is read from fn at scrape time.
func (m *Metrics) Gauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	s := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, s).Observe(d.Seconds())
	m.requestTotal.WithLabelValues(method, route, s).Inc()
}

// ObserveFetch has the signature of catalog.FetchObserver.
func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.upstreamFetch.WithLabelValues(source, result).Observe(d.Seconds())
}

func (m *Metrics) ReviewPosted() {
	if m == nil {
		return
	}
	m.reviewsPosted.Inc()
}

func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}
