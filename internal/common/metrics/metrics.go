// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionPlansComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_transition_plans_total",
			Help: "Total number of transition plans computed",
		},
		[]string{"to_stage"},
	)

	TransitionPlanFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_transition_plan_failures_total",
			Help: "Total number of plans degraded to empty due to an internal error",
		},
	)

	GateRequirementsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_gate_requirements_total",
			Help: "Total number of unmet gate side effects emitted",
		},
		[]string{"gate"},
	)

	TransitionPlanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_transition_plan_duration_seconds",
			Help: "Duration of transition plan computation in seconds",
		},
		[]string{"to_stage"},
	)

	TerminalOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_terminal_operations_total",
			Help: "Total number of terminal state operations",
		},
		[]string{"operation", "outcome"},
	)

	ApplicationsBulkRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_applications_bulk_rejected_total",
			Help: "Total number of applications rejected by the bulk executor",
		},
	)

	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_audit_write_failures_total",
			Help: "Total number of dropped audit log writes",
		},
	)
)
