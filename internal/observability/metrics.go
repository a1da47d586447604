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

const namespace = "workshop_checkin"

// Metrics stores Prometheus collectors used by the API, dispatch and sweeper flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	dispatchesTotal      *prometheus.CounterVec
	channelOutcomesTotal *prometheus.CounterVec
	channelSendDuration  *prometheus.HistogramVec
	ladderAttemptsTotal  *prometheus.CounterVec
	gateInflight         prometheus.Gauge
	checkInsTotal        *prometheus.CounterVec
	sweepResultsTotal    *prometheus.CounterVec
	eventsPublishedTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Total number of per-attendee dispatches by message kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		channelOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channel_outcomes_total",
				Help:      "Total number of channel send outcomes by channel, status and failure reason.",
			},
			[]string{"channel", "status", "reason"},
		),
		channelSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "channel_send_duration_seconds",
				Help:      "Provider send duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		ladderAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messaging_shape_attempts_total",
				Help:      "Total number of messaging request shape attempts by shape and outcome.",
			},
			[]string{"shape", "outcome"},
		),
		gateInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dispatch_inflight",
				Help:      "Current number of dispatches holding a concurrency gate slot.",
			},
		),
		checkInsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkins_total",
				Help:      "Total number of successful scans by resulting state.",
			},
			[]string{"state"},
		),
		sweepResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_sweep_attendees_total",
				Help:      "Total number of attendees handled by the retry sweeper grouped by result.",
			},
			[]string{"result"},
		),
		eventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Total number of attendee events handed to the broker by routing key and outcome.",
			},
			[]string{"routing_key", "outcome"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dispatchesTotal,
		m.channelOutcomesTotal,
		m.channelSendDuration,
		m.ladderAttemptsTotal,
		m.gateInflight,
		m.checkInsTotal,
		m.sweepResultsTotal,
		m.eventsPublishedTotal,
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

func (m *Metrics) IncDispatch(kind string, outcome string) {
	if m == nil {
		return
	}
	m.dispatchesTotal.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncChannelOutcome counts one channel result. reason is empty for sent.
func (m *Metrics) IncChannelOutcome(channel string, status string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "none"
	}
	m.channelOutcomesTotal.WithLabelValues(normalizeLabel(channel), normalizeLabel(status), reasonLabel).Inc()
}

func (m *Metrics) ObserveChannelSendDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.channelSendDuration.WithLabelValues(normalizeLabel(channel)).Observe(seconds)
}

func (m *Metrics) IncLadderAttempt(shape string, outcome string) {
	if m == nil {
		return
	}
	m.ladderAttemptsTotal.WithLabelValues(normalizeLabel(shape), normalizeLabel(outcome)).Inc()
}

// LadderAttempts exposes a single shape/outcome counter for assertions.
func (m *Metrics) LadderAttempts(shape string, outcome string) prometheus.Counter {
	return m.ladderAttemptsTotal.WithLabelValues(normalizeLabel(shape), normalizeLabel(outcome))
}

func (m *Metrics) IncGateInFlight() {
	if m == nil {
		return
	}
	m.gateInflight.Inc()
}

func (m *Metrics) DecGateInFlight() {
	if m == nil {
		return
	}
	m.gateInflight.Dec()
}

func (m *Metrics) IncCheckIn(state string) {
	if m == nil {
		return
	}
	m.checkInsTotal.WithLabelValues(normalizeLabel(state)).Inc()
}

func (m *Metrics) ObserveSweep(succeeded int, failed int) {
	if m == nil {
		return
	}
	m.sweepResultsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	m.sweepResultsTotal.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) IncEventPublished(routingKey string, outcome string) {
	if m == nil {
		return
	}
	m.eventsPublishedTotal.WithLabelValues(normalizeLabel(routingKey), normalizeLabel(outcome)).Inc()
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

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
