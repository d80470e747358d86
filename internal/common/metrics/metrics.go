// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type", "status"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	ConfigResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_config_resolutions_total",
			Help: "Configuration resolutions by winning source (remote, environment, none)",
		},
		[]string{"source"},
	)

	RecipientDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_recipient_deliveries_total",
			Help: "Per-recipient delivery outcomes",
		},
		[]string{"status"},
	)

	AdminDirectoryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_admin_directory_lookups_total",
			Help: "Admin recipient lookups by origin (cache, remote, error)",
		},
		[]string{"origin"},
	)
)
