package ports

import "github.com/ghalamif/AegisMaint/internal/domain"

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)

	RecordDecision(d domain.Decision)
}

type Field struct {
	Key   string
	Value any
}

// Metric names understood by the observability adapters.
const (
	MetricTicks             = "aegis_ticks_total"
	MetricExperiences       = "aegis_experiences_recorded_total"
	MetricEffectorFailures  = "aegis_effector_failures_total"
	MetricJournalErrors     = "aegis_journal_errors_total"
	MetricDecisionsExported = "aegis_decisions_exported_total"
	MetricDecisionsDropped  = "aegis_decisions_dropped_total"
	MetricSinkErrors        = "aegis_sink_errors_total"
	MetricStoreSize         = "aegis_experience_store_size"
	MetricQueueLength       = "aegis_decision_queue_length"
	MetricJournalSize       = "aegis_journal_size_bytes"
	MetricLastReward        = "aegis_last_reward"
	MetricSeverityScore     = "aegis_severity_score"
	MetricTickLatency       = "aegis_tick_latency_seconds"
	MetricExportLatency     = "aegis_export_latency_seconds"
)
