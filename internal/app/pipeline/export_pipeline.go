package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// RunExportPipeline drains decisions from q to sink in batches until ctx is
// cancelled. A failed batch is retried after the idle sleep. On shutdown the
// queue gets one final flush attempt.
func RunExportPipeline(ctx context.Context, q ports.DecisionQueue, sink ports.DecisionSink, pol ports.Policy, obs ports.Observability) {
	if obs == nil {
		obs = discardObs{}
	}
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	var pending []domain.Decision
	for {
		if len(pending) == 0 {
			pending = q.DequeueBatch(pol.MaxBatchSize)
		}
		if len(pending) > 0 && export(sink, pending, obs) {
			pending = nil
			obs.SetGauge(ports.MetricQueueLength, float64(q.Len()))
			continue
		}

		select {
		case <-ctx.Done():
			if len(pending) > 0 && !export(sink, pending, obs) {
				obs.IncCounter(ports.MetricDecisionsDropped, float64(len(pending)))
			}
			for batch := q.DequeueBatch(pol.MaxBatchSize); len(batch) > 0; batch = q.DequeueBatch(pol.MaxBatchSize) {
				if !export(sink, batch, obs) {
					obs.IncCounter(ports.MetricDecisionsDropped, float64(len(batch)+q.Len()))
					return
				}
			}
			return
		case <-time.After(sleep):
		}
	}
}

func export(sink ports.DecisionSink, batch []domain.Decision, obs ports.Observability) bool {
	start := time.Now()
	if err := sink.WriteBatch(batch); err != nil {
		obs.IncCounter(ports.MetricSinkErrors, 1)
		obs.LogError("sink_write_failed", err, ports.Field{Key: "sink", Value: sink.Name()}, ports.Field{Key: "batch", Value: len(batch)})
		return false
	}
	obs.ObserveLatency(ports.MetricExportLatency, time.Since(start).Seconds())
	obs.IncCounter(ports.MetricDecisionsExported, float64(len(batch)))
	return true
}
