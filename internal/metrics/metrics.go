// Package metrics exposes Prometheus collectors for the room engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roomchat"

// Metrics groups the collectors updated by core. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RoomsLoaded         prometheus.Gauge
	MembersActive       prometheus.Gauge
	MessagesBroadcast   prometheus.Counter
	DeliveryFailures    prometheus.Counter
	PersistenceFailures prometheus.Counter
	RoomsEvicted        prometheus.Counter
	registry            *prometheus.Registry
}

// New creates collectors registered on a fresh registry, including Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		RoomsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_loaded",
			Help:      "Rooms currently materialized in memory.",
		}),
		MembersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members_active",
			Help:      "Members joined to any room.",
		}),
		MessagesBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_broadcast_total",
			Help:      "Chat messages accepted and broadcast.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Sends to a member connection that failed.",
		}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Gateway reads or appends that failed or were dropped.",
		}),
		RoomsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_evicted_total",
			Help:      "Idle rooms dropped from memory.",
		}),
		registry: reg,
	}
	reg.MustRegister(
		m.RoomsLoaded,
		m.MembersActive,
		m.MessagesBroadcast,
		m.DeliveryFailures,
		m.PersistenceFailures,
		m.RoomsEvicted,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RoomLoaded() {
	if m != nil {
		m.RoomsLoaded.Inc()
	}
}

func (m *Metrics) RoomEvicted() {
	if m != nil {
		m.RoomsLoaded.Dec()
		m.RoomsEvicted.Inc()
	}
}

func (m *Metrics) MemberJoined() {
	if m != nil {
		m.MembersActive.Inc()
	}
}

func (m *Metrics) MemberLeft() {
	if m != nil {
		m.MembersActive.Dec()
	}
}

func (m *Metrics) MessageBroadcast() {
	if m != nil {
		m.MessagesBroadcast.Inc()
	}
}

func (m *Metrics) DeliveryFailed() {
	if m != nil {
		m.DeliveryFailures.Inc()
	}
}

func (m *Metrics) PersistenceFailed() {
	if m != nil {
		m.PersistenceFailures.Inc()
	}
}
