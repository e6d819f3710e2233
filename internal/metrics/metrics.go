package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal counts finished bridge attempts by outcome. The
	// outcome is "completed" or the failure kind.
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_attempts_total",
			Help: "Total number of finished bridge attempts",
		},
		[]string{"dest_chain", "outcome"},
	)

	// AttemptsInFlight tracks currently running attempts.
	AttemptsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_attempts_in_flight",
			Help: "Number of bridge attempts currently running",
		},
	)

	// StageDuration tracks how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_stage_duration_seconds",
			Help:    "Duration of bridge pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// AmountBridged tracks locked amounts in XLM.
	AmountBridged = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_amount_xlm",
			Help:    "Amount of XLM locked per attempt",
			Buckets: []float64{0.1, 1, 5, 10, 50, 100, 500, 1000, 10000},
		},
		[]string{"dest_chain"},
	)

	// RemoteErrors counts failures of remote dependencies.
	RemoteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_remote_errors_total",
			Help: "Total number of remote call failures",
		},
		[]string{"endpoint", "kind"},
	)

	// LockedUnreleased counts attempts that ended with funds locked on
	// the source chain but no destination release. These need manual
	// follow-up.
	LockedUnreleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_locked_unreleased_total",
			Help: "Attempts that failed after the source lock was confirmed",
		},
	)
)
