package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playback",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "playback",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "playback",
		Name:      "active_sessions",
		Help:      "Number of currently active playback sessions.",
	})

	SessionPhaseTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playback",
		Name:      "session_phase_transitions_total",
		Help:      "Total playback session phase transitions.",
	}, []string{"from", "to"})

	AcquisitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playback",
		Name:      "acquisitions_total",
		Help:      "Total stream acquisitions by outcome (immediate, polled, failed).",
	}, []string{"outcome"})

	AcquisitionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "playback",
		Name:      "acquisition_duration_seconds",
		Help:      "Time from start-resolution to a ready stream in seconds.",
		Buckets:   []float64{1, 3, 5, 10, 30, 60, 120, 300},
	})

	PollAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playback",
		Name:      "poll_attempts_total",
		Help:      "Total job poll attempts by result (ok, error).",
	}, []string{"result"})

	FallbackSwapsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playback",
		Name:      "fallback_swaps_total",
		Help:      "Total stutter-triggered fallback attempts by outcome.",
	}, []string{"outcome"})

	PrefetchTriggersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playback",
		Name:      "prefetch_triggers_total",
		Help:      "Total speculative next-content prefetch calls issued.",
	})

	PromotionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playback",
		Name:      "promotions_total",
		Help:      "Total prefetch promotions by outcome (hit, miss, error).",
	}, []string{"outcome"})

	HeartbeatFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playback",
		Name:      "heartbeat_failures_total",
		Help:      "Total failed session heartbeats.",
	})

	PlayerErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playback",
		Name:      "player_errors_total",
		Help:      "Total sink-reported playback errors by fatality.",
	}, []string{"fatal"})

	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "playback",
		Name:      "websocket_clients",
		Help:      "Number of currently connected websocket clients.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveSessions,
		SessionPhaseTransitionsTotal,
		AcquisitionsTotal,
		AcquisitionDuration,
		PollAttemptsTotal,
		FallbackSwapsTotal,
		PrefetchTriggersTotal,
		PromotionsTotal,
		HeartbeatFailuresTotal,
		PlayerErrorsTotal,
		WebsocketClients,
	)
}
