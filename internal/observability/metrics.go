// Package observability provides Prometheus metrics and tracing for the escrow service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MilestoneTransitions counts successful state-machine transitions by target status.
	MilestoneTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_milestone_transitions_total",
		Help: "Total number of milestone status transitions by target status",
	}, []string{"to"})

	// CommandRejections counts commands refused by the state machine, by error code.
	CommandRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_command_rejections_total",
		Help: "Total number of escrow commands rejected by error code",
	}, []string{"code"})

	// FundsReleased counts fund releases, split by explicit client approval vs deadline sweep.
	FundsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_funds_released_total",
		Help: "Total number of escrow releases by trigger",
	}, []string{"trigger"})

	// FundsReleasedCents accumulates the settled amounts.
	FundsReleasedCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atelier_funds_released_cents_total",
		Help: "Total settled escrow amount in cents",
	})

	// SweepRuns counts deadline sweep executions by result.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_sweep_runs_total",
		Help: "Total number of review-deadline sweep runs by result",
	}, []string{"result"})

	// SweepDuration records how long each sweep run takes.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atelier_sweep_duration_seconds",
		Help:    "Duration of review-deadline sweep runs in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// FoldersUnlocked counts protected-folder unlock events.
	FoldersUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atelier_folders_unlocked_total",
		Help: "Total number of protected folders unlocked by fund release",
	})

	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_redis_errors_total",
		Help: "Total number of Redis command errors by command",
	}, []string{"command"})

	// NotificationFailures counts dropped notification publishes by event type.
	// Failures here never roll back state transitions.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_notification_failures_total",
		Help: "Total number of notification publish failures by event type",
	}, []string{"event"})
)
