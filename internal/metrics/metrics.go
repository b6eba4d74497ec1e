package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts registry operations by name and status
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_operations_total",
			Help: "Total number of registry operations",
		},
		[]string{"operation", "status"},
	)

	// OperationDuration tracks operation processing time
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_operation_duration_seconds",
			Help:    "Operation processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// PolicyRejections counts transfers rejected by the policy pipeline
	PolicyRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_policy_rejections_total",
			Help: "Total number of transfers rejected by policy",
		},
		[]string{"reason"},
	)

	// PermitsTotal counts permit submissions by outcome
	PermitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_permits_total",
			Help: "Total number of permit submissions",
		},
		[]string{"status"},
	)

	// TokensLive tracks the number of tokens currently on the ledger
	TokensLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_tokens_live",
			Help: "Number of tokens currently on the ledger",
		},
	)

	// TransferSequence tracks the lifetime transfer counter
	TransferSequence = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_transfer_sequence",
			Help: "Lifetime count of completed transfers",
		},
	)

	// JournalEvents tracks the number of events held in the journal
	JournalEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_journal_events",
			Help: "Number of events in the in-memory journal",
		},
	)

	// EventsExported counts journal events written to the event store
	EventsExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_events_exported_total",
			Help: "Total number of journal events exported",
		},
		[]string{"status"},
	)

	// AuditRuns counts consistency audits by result
	AuditRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_audit_runs_total",
			Help: "Total number of ledger consistency audits",
		},
		[]string{"result"},
	)

	// AuditLastSuccess tracks the unix time of the last clean audit
	AuditLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_audit_last_success_timestamp",
			Help: "Unix timestamp of the last clean consistency audit",
		},
	)
)
