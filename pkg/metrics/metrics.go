// Package metrics provides Prometheus metrics for boardcore
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Prompt state machine
	PromptTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardcore_prompt_transitions_total",
			Help: "Total number of prompt transitions by flavor and action",
		},
		[]string{"flavor", "action"},
	)
	PromptExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardcore_prompt_expired_total",
			Help: "Callbacks that referenced a prompt whose state had expired",
		},
		[]string{"flavor"},
	)
	PromptConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boardcore_prompt_conflicts_total",
			Help: "Prompt transitions dropped because a concurrent callback won the write",
		},
	)

	// Action registry
	ActionResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardcore_action_resolutions_total",
			Help: "Action resolutions by kind and result",
		},
		[]string{"kind", "result"},
	)

	// Token store
	TokenStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardcore_tokenstore_errors_total",
			Help: "Token store operations that failed against the backend",
		},
		[]string{"op"},
	)

	// Board API
	BoardRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boardcore_board_request_duration_seconds",
			Help:    "Duration of board API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	// Follow-up tasks
	TasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardcore_tasks_processed_total",
			Help: "Follow-up tasks by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	ServerStartTime = time.Now()
)

// ObserveBoardRequest records one board API round trip.
func ObserveBoardRequest(endpoint, status string, started time.Time) {
	BoardRequestDuration.WithLabelValues(endpoint, status).Observe(time.Since(started).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
