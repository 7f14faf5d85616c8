package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lborres/tala/core"
)

// Metrics counts auth and event outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg            prometheus.Registerer
	authOps        *prometheus.CounterVec
	events         *prometheus.CounterVec
	sessionsPruned prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tala",
				Name:      "auth_operations_total",
				Help:      "Auth gateway operations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tala",
				Name:      "events_recorded_total",
				Help:      "Event record attempts by outcome.",
			},
			[]string{"outcome"},
		),
		sessionsPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tala",
				Name:      "sessions_pruned_total",
				Help:      "Expired sessions removed from the session store.",
			},
		),
	}

	reg.MustRegister(m.authOps, m.events, m.sessionsPruned)
	m.reg = reg
	return m
}

func (m *Metrics) observeAuth(operation string, err error) {
	if m == nil {
		return
	}
	m.authOps.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) observeEvent(err error) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome(err)).Inc()
}

// ObservePrune adds count pruned sessions
func (m *Metrics) ObservePrune(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sessionsPruned.Add(float64(count))
}

// WatchCache exports the counters of c, read at scrape time
func (m *Metrics) WatchCache(c core.CacheWithStats) {
	if m == nil || c == nil {
		return
	}
	counter := func(name, help string, value func(core.CacheStats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: "tala", Subsystem: "session_cache", Name: name, Help: help},
			func() float64 { return float64(value(c.Stats())) },
		)
	}
	m.reg.MustRegister(
		counter("hits_total", "Session cache lookups served from the cache.", func(s core.CacheStats) int64 { return s.Hits }),
		counter("misses_total", "Session cache lookups that fell through to the store.", func(s core.CacheStats) int64 { return s.Misses }),
		counter("evictions_total", "Session cache entries evicted at capacity.", func(s core.CacheStats) int64 { return s.Evictions }),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: "tala", Subsystem: "session_cache", Name: "entries", Help: "Live session cache entries."},
			func() float64 { return float64(c.Stats().Size) },
		),
	)
}

// outcome collapses an error into a bounded label value
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, core.ErrDuplicateIdentity):
		return "conflict"
	case errors.Is(err, core.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, core.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, core.ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}
