// Package metrics provides Prometheus instrumentation for the assessment
// client and the local scoring service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aptitude"

// Manager owns every collector and the registry they are registered with.
type Manager struct {
	registry *prometheus.Registry

	eventsCaptured  *prometheus.CounterVec
	eventsThrottled prometheus.Counter
	eventsEnqueued  prometheus.Counter
	eventsDropped   prometheus.Counter
	sinkSends       *prometheus.CounterVec
	queueDepth      prometheus.Gauge

	stageTransitions   *prometheus.CounterVec
	adaptiveQuestions  *prometheus.CounterVec
	adaptiveDowngrades prometheus.Counter
	profiles           *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager with a private registry.
func NewManager() *Manager {
	m := &Manager{registry: prometheus.NewRegistry()}

	m.eventsCaptured = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "telemetry", Name: "events_captured_total",
		Help: "Telemetry events appended to the local buffer, by event type.",
	}, []string{"event_type"})
	m.eventsThrottled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "telemetry", Name: "events_throttled_total",
		Help: "High-frequency events discarded by the rate limiter.",
	})
	m.eventsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "telemetry", Name: "events_enqueued_total",
		Help: "Telemetry items queued for transmission.",
	})
	m.eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "telemetry", Name: "events_dropped_total",
		Help: "Telemetry items not queued because the queue was full.",
	})
	m.sinkSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "telemetry", Name: "sink_sends_total",
		Help: "Transmission attempts per sink and outcome.",
	}, []string{"sink", "outcome"})
	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "telemetry", Name: "queue_depth",
		Help: "Items waiting in the telemetry queue.",
	})

	m.stageTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "session", Name: "transitions_total",
		Help: "State machine transitions by destination state.",
	}, []string{"state"})
	m.adaptiveQuestions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "adaptive", Name: "questions_total",
		Help: "Adaptive question requests by outcome.",
	}, []string{"outcome"})
	m.adaptiveDowngrades = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "adaptive", Name: "downgrades_total",
		Help: "Sessions downgraded from adaptive to fixed mode.",
	})
	m.profiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "results", Name: "profiles_total",
		Help: "Ability profiles produced, by origin.",
	}, []string{"origin"})
	m.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "collaborator", Name: "request_duration_seconds",
		Help:    "Latency of collaborator HTTP calls.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"endpoint", "outcome"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "server", Name: "http_requests_total",
		Help: "Requests served by the local scoring service.",
	}, []string{"method", "route", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "server", Name: "http_request_duration_seconds",
		Help:    "Request latency of the local scoring service.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.registry.MustRegister(
		m.eventsCaptured, m.eventsThrottled, m.eventsEnqueued, m.eventsDropped,
		m.sinkSends, m.queueDepth,
		m.stageTransitions, m.adaptiveQuestions, m.adaptiveDowngrades,
		m.profiles, m.requestLatency,
		m.httpRequests, m.httpRequestDuration,
	)
	return m
}

// Registry returns the registry backing this Manager.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) EventCaptured(eventType string) { m.eventsCaptured.WithLabelValues(eventType).Inc() }
func (m *Manager) EventThrottled()                { m.eventsThrottled.Inc() }
func (m *Manager) EventEnqueued()                 { m.eventsEnqueued.Inc() }
func (m *Manager) EventDropped()                  { m.eventsDropped.Inc() }
func (m *Manager) QueueDepth(n int)               { m.queueDepth.Set(float64(n)) }

// SinkSend records one transmission attempt.
func (m *Manager) SinkSend(sink string, err error) {
	m.sinkSends.WithLabelValues(sink, outcome(err)).Inc()
}

func (m *Manager) Transition(state string)       { m.stageTransitions.WithLabelValues(state).Inc() }
func (m *Manager) AdaptiveQuestion(err error)    { m.adaptiveQuestions.WithLabelValues(outcome(err)).Inc() }
func (m *Manager) AdaptiveDowngrade()            { m.adaptiveDowngrades.Inc() }
func (m *Manager) Profile(origin string)         { m.profiles.WithLabelValues(origin).Inc() }

// Request observes a collaborator call.
func (m *Manager) Request(endpoint string, d time.Duration, err error) {
	m.requestLatency.WithLabelValues(endpoint, outcome(err)).Observe(d.Seconds())
}

// HTTPRequest observes a request served by the local service.
func (m *Manager) HTTPRequest(method, route, status string, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	defaultOnce sync.Once
	defaultMgr  *Manager
)

// Default returns the process-wide Manager.
func Default() *Manager {
	defaultOnce.Do(func() { defaultMgr = NewManager() })
	return defaultMgr
}
