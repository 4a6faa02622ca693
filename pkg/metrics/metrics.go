package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Check engine metrics
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_checks_total",
			Help: "Total number of probe executions",
		},
		[]string{"kind", "outcome"}, // outcome: up, down
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsewatch_probe_duration_seconds",
			Help:    "Probe round trip latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_status_transitions_total",
			Help: "Monitor status transitions that fired an alert dispatch",
		},
		[]string{"to"},
	)

	AnomaliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsewatch_latency_anomalies_total",
			Help: "Latency anomalies flagged by the detector",
		},
	)

	// Task queue metrics
	TasksEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_tasks_enqueued_total",
			Help: "Tasks accepted by the queue, immediate or delayed",
		},
		[]string{"queue", "task"},
	)

	TasksPromotedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_tasks_promoted_total",
			Help: "Delayed tasks promoted to the broker",
		},
		[]string{"queue"},
	)

	TaskRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_task_retries_total",
			Help: "Task executions re-enqueued after a handler failure",
		},
		[]string{"queue", "task"},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_notifications_total",
			Help: "Delivery attempts by provider and result",
		},
		[]string{"provider", "status"}, // status: success, failure
	)
)
