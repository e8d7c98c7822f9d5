// Package metrics defines the kiosk's Prometheus instruments: punch
// outcomes, match latency, sync outcomes, and admin login attempts. The
// collectors here are plain, unregistered vars rather than promauto's
// auto-registering constructors, since provider/prometheus.Register mounts
// its own private *prometheus.Registry instead of the global one — they are
// handed to Collectors() and registered explicitly by the caller.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PunchOutcomes counts punch attempts by channel (biometric, device),
	// resulting punch type, and outcome (recorded, rejected, error).
	PunchOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checador_punch_outcomes_total",
		Help: "count of punch attempts by channel, punch type, and outcome",
	}, []string{"channel", "punch_type", "outcome"})

	// MatchLatency observes wall-clock time spent in one Identify pass over
	// the fingerprint gallery.
	MatchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checador_match_latency_seconds",
		Help:    "latency of one 1:N fingerprint identification pass",
		Buckets: prometheus.DefBuckets,
	})

	// SyncOutcomes counts remote sync passes by outcome (synced, empty,
	// fetch_error, marshal_error, request_error, rejected, mark_synced_error).
	SyncOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checador_sync_outcomes_total",
		Help: "count of remote sync passes by outcome",
	}, []string{"outcome"})

	// LoginAttempts counts admin console login attempts by outcome
	// (success, invalid_password, rate_limited, error).
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checador_login_attempts_total",
		Help: "count of admin console login attempts by outcome",
	}, []string{"outcome"})
)

// Collectors returns every domain collector for registration against the
// metrics server's registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		PunchOutcomes,
		MatchLatency,
		SyncOutcomes,
		LoginAttempts,
	}
}
