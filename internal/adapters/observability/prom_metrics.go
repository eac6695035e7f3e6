// Package observability backs the Observability port with Prometheus
// metrics and slog records.
package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// LevelCritical sits above slog.LevelError.
const LevelCritical = slog.LevelError + 4

type PromObs struct {
	log *slog.Logger

	counters  map[string]prometheus.Counter
	gauges    map[string]prometheus.Gauge
	histos    map[string]prometheus.Observer
	decisions *prometheus.CounterVec
	overrides prometheus.Counter
}

// NewPromObs registers every metric on reg (the default registerer when nil)
// and logs through logger (slog.Default when nil).
func NewPromObs(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = slog.Default()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	p := &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			ports.MetricTicks:             counter(ports.MetricTicks, "Control loop ticks completed."),
			ports.MetricExperiences:       counter(ports.MetricExperiences, "Experiences recorded in the store."),
			ports.MetricEffectorFailures:  counter(ports.MetricEffectorFailures, "Action executions that failed."),
			ports.MetricJournalErrors:     counter(ports.MetricJournalErrors, "Experiences not recorded because the journal append failed."),
			ports.MetricDecisionsExported: counter(ports.MetricDecisionsExported, "Decisions written to the export sink."),
			ports.MetricDecisionsDropped:  counter(ports.MetricDecisionsDropped, "Decisions lost to queue backpressure."),
			ports.MetricSinkErrors:        counter(ports.MetricSinkErrors, "Failed export batches."),
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricStoreSize:     gauge(ports.MetricStoreSize, "Experiences held by the store."),
			ports.MetricQueueLength:   gauge(ports.MetricQueueLength, "Decisions waiting for export."),
			ports.MetricJournalSize:   gauge(ports.MetricJournalSize, "Size of the experience journal."),
			ports.MetricLastReward:    gauge(ports.MetricLastReward, "Reward of the most recent experience."),
			ports.MetricSeverityScore: gauge(ports.MetricSeverityScore, "Weighted severity score of the latest decision."),
		},
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_decisions_total",
			Help: "Decisions by selected action and severity tier.",
		}, []string{"action", "severity"}),
		overrides: counter("aegis_safety_overrides_total", "Decisions forced to emergency shutdown by the safety rule."),
	}

	tick := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricTickLatency,
		Help:    "Duration of one classify-decide-execute-learn tick.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})
	export := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricExportLatency,
		Help:    "Latency of one export batch.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	p.histos = map[string]prometheus.Observer{
		ports.MetricTickLatency:   tick,
		ports.MetricExportLatency: export,
	}

	collectors := []prometheus.Collector{p.decisions, p.overrides, tick, export}
	for _, c := range p.counters {
		collectors = append(collectors, c)
	}
	for _, g := range p.gauges {
		collectors = append(collectors, g)
	}
	reg.MustRegister(collectors...)
	return p
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.emit(slog.LevelInfo, msg, nil, fields)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.emit(slog.LevelError, msg, err, fields)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.emit(LevelCritical, msg, err, fields)
}

func (p *PromObs) emit(level slog.Level, msg string, err error, fields []ports.Field) {
	attrs := make([]slog.Attr, 0, len(fields)+1)
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	p.log.LogAttrs(context.Background(), level, msg, attrs...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

// RecordDecision counts d and publishes its severity score. Overrides are
// logged at critical level.
func (p *PromObs) RecordDecision(d domain.Decision) {
	p.decisions.WithLabelValues(d.Action.String(), d.Severity.String()).Inc()
	p.SetGauge(ports.MetricSeverityScore, float64(d.Score))
	if d.Override {
		p.overrides.Inc()
		p.LogCritical("safety override", nil,
			ports.Field{Key: "decision_id", Value: d.ID},
			ports.Field{Key: "severity_score", Value: d.Score},
		)
	}
}

var _ ports.Observability = (*PromObs)(nil)
