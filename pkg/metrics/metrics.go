package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for chat turns, agent calls and scheduled jobs.
// All methods are safe on a nil receiver.
type Metrics struct {
	turns         *prometheus.CounterVec
	invocations   *prometheus.CounterVec
	modelLatency  *prometheus.HistogramVec
	fallbacks     prometheus.Counter
	notifications *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNewMetrics registers the collectors on reg. Existing collectors with the
// same descriptor are reused; any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vistara",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns handled, by outcome.",
		}, []string{"outcome"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vistara",
			Subsystem: "agent",
			Name:      "invocations_total",
			Help:      "Agent invocations, by agent, variant and status.",
		}, []string{"agent", "variant", "status"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vistara",
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Latency of model calls, by call and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call", "status"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vistara",
			Subsystem: "router",
			Name:      "fallbacks_total",
			Help:      "Turns that used the strategist-only routing fallback.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vistara",
			Subsystem: "jobs",
			Name:      "notifications_written_total",
			Help:      "Notifications written by scheduled jobs, by type.",
		}, []string{"type"}),
	}

	m.turns = register(reg, m.turns)
	m.invocations = register(reg, m.invocations)
	m.modelLatency = register(reg, m.modelLatency)
	m.fallbacks = register(reg, m.fallbacks)
	m.notifications = register(reg, m.notifications)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveInvocation(agent, variant, status string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(agent, variant, status).Inc()
}

func (m *Metrics) ObserveModelCall(call, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.modelLatency.WithLabelValues(call, status).Observe(d.Seconds())
}

func (m *Metrics) IncRoutingFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *Metrics) IncNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}
