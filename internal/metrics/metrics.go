package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive tracks currently open WebSocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "syncrezka",
		Name:      "connections_active",
		Help:      "Current number of open WebSocket connections",
	})

	// ConnectionsTotal counts accepted WebSocket connections.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncrezka",
		Name:      "connections_total",
		Help:      "Total number of accepted WebSocket connections",
	})

	// Commands counts dispatched commands by name.
	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "syncrezka",
		Name:      "commands_total",
		Help:      "Total number of dispatched protocol commands",
	}, []string{"command"})

	// MalformedFrames counts frames that matched no known command shape.
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncrezka",
		Name:      "malformed_frames_total",
		Help:      "Total number of ignored malformed or unknown frames",
	})

	// RoomsCreated counts rooms created since startup.
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncrezka",
		Name:      "rooms_created_total",
		Help:      "Total number of rooms created",
	})

	// BroadcastsSent counts frames delivered to slaves.
	BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncrezka",
		Name:      "broadcasts_sent_total",
		Help:      "Total number of sync frames queued to slaves",
	})

	// BroadcastsSkipped counts slaves skipped because their connection
	// was closed for sending at broadcast time.
	BroadcastsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncrezka",
		Name:      "broadcasts_skipped_total",
		Help:      "Total number of slaves skipped during a broadcast",
	})

	// RateLimited counts frames dropped by the command rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncrezka",
		Name:      "rate_limited_frames_total",
		Help:      "Total number of frames dropped by the rate limiter",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
