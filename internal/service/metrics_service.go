package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the instruments
// recorded across the API.
type MetricsService struct {
	registry *prometheus.Registry

	enrollmentAttempts *prometheus.CounterVec
	offeringsFull      prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewMetricsService builds the registry and registers all instruments.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)
	return &MetricsService{
		registry: registry,
		enrollmentAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollment_attempts_total",
			Help: "Enrollment attempts by outcome code.",
		}, []string{"outcome"}),
		offeringsFull: factory.NewCounter(prometheus.CounterOpts{
			Name: "offering_full_total",
			Help: "Offerings that reached their capacity ceiling.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveEnrollmentAttempt records one enrollment attempt outcome.
func (s *MetricsService) ObserveEnrollmentAttempt(outcome string) {
	s.enrollmentAttempts.WithLabelValues(outcome).Inc()
}

// ObserveOfferingFull records an offering reaching capacity.
func (s *MetricsService) ObserveOfferingFull() {
	s.offeringsFull.Inc()
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	s.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler exposes the registry for scraping.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
