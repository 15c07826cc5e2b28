package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and scheduler flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	transitionsTotal     *prometheus.CounterVec
	rollbacksTotal       prometheus.Counter
	casConflictsTotal    prometheus.Counter
	sweepDuration        prometheus.Histogram
	sweepBatchesExamined prometheus.Counter
	eventPublishFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batch_lifecycle",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "batch_lifecycle",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batch_lifecycle",
				Name:      "transitions_total",
				Help:      "Total number of committed status transitions by target status and mode.",
			},
			[]string{"to", "mode"},
		),
		rollbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "batch_lifecycle",
				Name:      "rollbacks_total",
				Help:      "Total number of committed rollbacks.",
			},
		),
		casConflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "batch_lifecycle",
				Name:      "cas_conflicts_total",
				Help:      "Total number of compare-and-set conflicts observed on batch commits.",
			},
		),
		sweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "batch_lifecycle",
				Name:      "sweep_duration_seconds",
				Help:      "Scheduler sweep duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
		),
		sweepBatchesExamined: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "batch_lifecycle",
				Name:      "sweep_batches_examined_total",
				Help:      "Total number of batches examined by scheduler sweeps.",
			},
		),
		eventPublishFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "batch_lifecycle",
				Name:      "event_publish_failures_total",
				Help:      "Total number of status-change events that failed to publish.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.transitionsTotal,
		m.rollbacksTotal,
		m.casConflictsTotal,
		m.sweepDuration,
		m.sweepBatchesExamined,
		m.eventPublishFailures,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncTransition(to string, automatic bool) {
	if m == nil {
		return
	}
	mode := "manual"
	if automatic {
		mode = "auto"
	}
	m.transitionsTotal.WithLabelValues(strings.ToLower(strings.TrimSpace(to)), mode).Inc()
}

func (m *Metrics) IncRollback() {
	if m == nil {
		return
	}
	m.rollbacksTotal.Inc()
}

func (m *Metrics) IncCASConflict() {
	if m == nil {
		return
	}
	m.casConflictsTotal.Inc()
}

func (m *Metrics) ObserveSweepDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.sweepDuration.Observe(seconds)
}

func (m *Metrics) AddSweepBatchesExamined(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepBatchesExamined.Add(float64(n))
}

func (m *Metrics) IncEventPublishFailure() {
	if m == nil {
		return
	}
	m.eventPublishFailures.Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
