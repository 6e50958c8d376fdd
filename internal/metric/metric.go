// Package metric exposes the service's Prometheus collectors.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_connections",
		Help: "Active websocket connections",
	})
	Rooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_rooms",
		Help: "Rooms currently registered",
	})
	Events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_total",
		Help: "Inbound events processed, by event name",
	}, []string{"event"})
	MessagesRouted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_routed_total",
		Help: "Chat messages relayed to a room",
	})
	BroadcastsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_broadcasts_dropped_total",
		Help: "Outbound frames dropped because a client send buffer was full",
	})
	GhostEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_ghost_evictions_total",
		Help: "Memberships evicted after the disconnect grace period",
	})
)

func Init() {
	prometheus.MustRegister(Connections, Rooms, Events, MessagesRouted, BroadcastsDropped, GhostEvictions)
}

// Handler returns an http.Handler for Prometheus scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
