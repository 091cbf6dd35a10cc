// Package metrics exposes the Prometheus instruments for the realtime
// meeting server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	EventsReceived    *prometheus.CounterVec
	EventsRelayed     *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	RoomsArchived     prometheus.Counter
	HTTPDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "confab",
			Name:      "active_connections",
			Help:      "Number of live websocket connections.",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "confab",
			Name:      "active_rooms",
			Help:      "Number of rooms with at least one member.",
		}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "events_received_total",
			Help:      "Inbound realtime events by type.",
		}, []string{"type"}),
		EventsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "events_relayed_total",
			Help:      "Outbound realtime events by type.",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "events_dropped_total",
			Help:      "Events discarded before delivery, by reason.",
		}, []string{"reason"}),
		RoomsArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "rooms_archived_total",
			Help:      "Rooms archived to durable history.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "confab",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ActiveConnections,
		m.ActiveRooms,
		m.EventsReceived,
		m.EventsRelayed,
		m.EventsDropped,
		m.RoomsArchived,
		m.HTTPDuration,
	)

	return m
}

// Handler serves the scrape endpoint for this registry only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
