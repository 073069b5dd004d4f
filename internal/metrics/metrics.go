package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orchestrate_runs_enqueued_total",
		Help: "Total number of runs placed on the run queue.",
	})

	RunsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orchestrate_runs_dropped_total",
		Help: "Total number of runs rejected due to a full queue.",
	})

	RunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrate_runs_completed_total",
		Help: "Total number of finished runs, labelled by status (ok, failed, aborted).",
	}, []string{"status"})

	RoutinesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrate_routines_executed_total",
		Help: "Total number of routine executions, labelled by routine and status.",
	}, []string{"routine", "status"})

	RoutinesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrate_routines_skipped_total",
		Help: "Total number of skipped routines, labelled by routine and reason.",
	}, []string{"routine", "reason"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orchestrate_run_duration_seconds",
		Help:    "Wall-clock duration of a full run pass.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orchestrate_queue_utilization_ratio",
		Help: "Current run queue utilization (0 to 1).",
	})
)
