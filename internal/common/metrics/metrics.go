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
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	ReimbursementsAllocated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welfare_reimbursements_allocated_total",
			Help: "Total reimbursement obligations created by the allocator",
		},
		[]string{"path"}, // "automatic" or "administrative"
	)

	FundActiveMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "welfare_fund_active_members",
			Help: "Active paid members as of the last stats recompute",
		},
	)

	FundOperational = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "welfare_fund_operational",
			Help: "1 when the fund has reached its operational threshold",
		},
	)
)
