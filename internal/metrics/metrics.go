// Package metrics declares the Prometheus collectors shared by the workers and the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intraview_tasks_completed_total",
			Help: "Total number of background tasks completed",
		},
		[]string{"kind"},
	)

	TasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intraview_tasks_failed_total",
			Help: "Total number of background tasks that returned an error",
		},
		[]string{"kind"},
	)

	TasksDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intraview_tasks_dropped_total",
			Help: "Total number of background tasks discarded without effect",
		},
		[]string{"kind", "reason"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intraview_task_duration_seconds",
			Help:    "Duration of background task processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"kind"},
	)

	TasksActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intraview_tasks_active",
			Help: "Number of background tasks currently running",
		},
		[]string{"kind"},
	)

	RunsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intraview_runs_created_total",
			Help: "Total number of interview runs started",
		},
	)

	RunsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intraview_runs_failed_total",
			Help: "Total number of runs moved to the failed status",
		},
		[]string{"reason"},
	)

	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intraview_ai_tokens_total",
			Help: "Total number of AI tokens consumed by scoring passes",
		},
		[]string{"model"},
	)
)
