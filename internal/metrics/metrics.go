// Package metrics exposes prometheus instrumentation for the word cloud hub.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons for EventsDropped.
const (
	ReasonEmptyWord   = "empty_word"
	ReasonUnknownWord = "unknown_word"
	ReasonMalformed   = "malformed"
	ReasonUnknownType = "unknown_type"
)

// Reset sources for Resets.
const (
	SourceClient = "client"
	SourceAdmin  = "admin"
)

// Collector holds the prometheus metrics for one server instance.
type Collector struct {
	// registry is private so several servers can run in one test binary.
	registry *prometheus.Registry

	SessionsActive  prometheus.Gauge
	SessionsEvicted prometheus.Counter
	EventsAccepted  *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	Resets          *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry. Go runtime and
// process metrics are registered alongside the word cloud metrics.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected client sessions",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Sessions dropped because their outbound queue was full",
		}),
		EventsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound client events applied to the store",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Inbound client events ignored without a state change",
		}, []string{"reason"}),
		Resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Full state resets by trigger",
		}, []string{"source"}),
	}

	registry.MustRegister(
		c.SessionsActive,
		c.SessionsEvicted,
		c.EventsAccepted,
		c.EventsDropped,
		c.Resets,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// The methods below are nil-safe so the hub can run without instrumentation.

// SessionOpened records a new session.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.SessionsActive.Inc()
}

// SessionClosed records a session leaving the fan-out set.
func (c *Collector) SessionClosed(evicted bool) {
	if c == nil {
		return
	}
	c.SessionsActive.Dec()
	if evicted {
		c.SessionsEvicted.Inc()
	}
}

// Accepted records an inbound event that changed state.
func (c *Collector) Accepted(eventType string) {
	if c == nil {
		return
	}
	c.EventsAccepted.WithLabelValues(eventType).Inc()
}

// Dropped records an inbound event that was ignored.
func (c *Collector) Dropped(reason string) {
	if c == nil {
		return
	}
	c.EventsDropped.WithLabelValues(reason).Inc()
}

// Reset records a full state reset.
func (c *Collector) Reset(source string) {
	if c == nil {
		return
	}
	c.Resets.WithLabelValues(source).Inc()
}
