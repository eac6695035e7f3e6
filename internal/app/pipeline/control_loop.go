// Package pipeline runs the per-asset control loop and the decision export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
	"github.com/ghalamif/AegisMaint/internal/reward"
)

// Decider is the decision policy contract used by the loop.
type Decider interface {
	Decide(state domain.Reading, health domain.Health) (domain.Decision, error)
}

// Recorder is the experience store contract used by the loop.
type Recorder interface {
	Record(e domain.Experience) (domain.Experience, error)
	Len() int
}

// Components wires one asset's control loop. Journal, Queue and OnTick are
// optional.
type Components struct {
	Classifier ports.Classifier
	Decider    Decider
	Store      Recorder
	Effector   ports.Effector
	Reward     ports.RewardFunc
	Journal    ports.ExperienceJournal
	Queue      ports.DecisionQueue
	Obs        ports.Observability
	Now        func() time.Time
	OnTick     func(domain.TickReport)
}

func (c *Components) applyDefaults() error {
	if c.Classifier == nil || c.Decider == nil || c.Store == nil || c.Effector == nil {
		return errors.New("control loop requires classifier, decider, store and effector")
	}
	if c.Reward == nil {
		c.Reward = reward.Reference
	}
	if c.Obs == nil {
		c.Obs = discardObs{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// RunControlLoop runs one tick per reading, strictly in order, until ctx is
// cancelled or readings is closed. Cancellation is only observed between
// ticks, so the store, journal and decision log never hold a partial tick.
// Rejected readings and tick failures are logged and the loop keeps going.
func RunControlLoop(ctx context.Context, readings <-chan domain.Reading, c Components, pol ports.Policy) error {
	if err := c.applyDefaults(); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-readings:
			if !ok {
				return nil
			}
			if _, err := c.tick(ctx, r, pol); err != nil {
				c.Obs.LogError("tick_failed", err)
			}
		}
	}
}

// Tick runs a single classify-decide-execute-learn cycle.
func (c Components) Tick(ctx context.Context, r domain.Reading, pol ports.Policy) (domain.TickReport, error) {
	if err := c.applyDefaults(); err != nil {
		return domain.TickReport{}, err
	}
	return c.tick(ctx, r, pol)
}

func (c Components) tick(ctx context.Context, r domain.Reading, pol ports.Policy) (domain.TickReport, error) {
	start := time.Now()
	body := context.WithoutCancel(ctx)

	res := domain.TickReport{Reading: r, Health: c.Classifier.Classify(r)}

	d, err := c.Decider.Decide(r, res.Health)
	if err != nil {
		return res, fmt.Errorf("decide: %w", err)
	}
	res.Decision = d
	c.Obs.RecordDecision(d)

	outcome, err := c.Effector.Execute(body, d.Action, r)
	if err != nil {
		c.Obs.IncCounter(ports.MetricEffectorFailures, 1)
		c.Obs.LogError("effector_failed", err, ports.Field{Key: "action", Value: d.Action.String()})
		outcome = domain.Outcome{Success: false, Effect: err.Error()}
	} else if !outcome.Success {
		c.Obs.IncCounter(ports.MetricEffectorFailures, 1)
	}
	res.Outcome = outcome
	res.Reward = c.Reward(d.Action, outcome, res.Health)

	exp := domain.Experience{
		Seq:       uint64(c.Store.Len()) + 1,
		Timestamp: c.Now(),
		State:     r,
		Action:    d.Action,
		Outcome:   outcome,
		Reward:    res.Reward,
	}

	// The journal must stay an exact image of the store: no record without
	// a durable entry.
	if c.Journal != nil {
		if _, err := c.Journal.Append(exp); err != nil {
			c.Obs.IncCounter(ports.MetricJournalErrors, 1)
			c.Obs.LogCritical("journal_append_failed", err, ports.Field{Key: "decision_id", Value: d.ID})
			c.finish(ctx, &res, pol, start)
			return res, nil
		}
		c.Obs.SetGauge(ports.MetricJournalSize, float64(c.Journal.Stats().SizeBytes))
	}

	exp, err = c.Store.Record(exp)
	if err != nil {
		return res, fmt.Errorf("record experience: %w", err)
	}
	res.Experience = exp
	res.Recorded = true
	c.Obs.IncCounter(ports.MetricExperiences, 1)
	c.Obs.SetGauge(ports.MetricStoreSize, float64(c.Store.Len()))
	c.Obs.SetGauge(ports.MetricLastReward, res.Reward)

	c.finish(ctx, &res, pol, start)
	return res, nil
}

func (c Components) finish(ctx context.Context, res *domain.TickReport, pol ports.Policy, start time.Time) {
	if c.Queue != nil {
		if !enqueueWithPolicy(ctx, c.Queue, res.Decision, pol, c.Obs) {
			c.Obs.IncCounter(ports.MetricDecisionsDropped, 1)
		}
		c.Obs.SetGauge(ports.MetricQueueLength, float64(c.Queue.Len()))
	}
	c.Obs.IncCounter(ports.MetricTicks, 1)
	c.Obs.ObserveLatency(ports.MetricTickLatency, time.Since(start).Seconds())
	if c.OnTick != nil {
		c.OnTick(*res)
	}
}

// enqueueWithPolicy applies the backpressure policy. A blocked enqueue gives
// up when ctx is cancelled.
func enqueueWithPolicy(ctx context.Context, q ports.DecisionQueue, d domain.Decision, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(d); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			select {
			case <-ctx.Done():
				return false
			case <-time.After(sleep):
			}
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("decision queue exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

type discardObs struct{}

func (discardObs) LogInfo(string, ...ports.Field)            {}
func (discardObs) LogError(string, error, ...ports.Field)    {}
func (discardObs) LogCritical(string, error, ...ports.Field) {}
func (discardObs) IncCounter(string, float64)                {}
func (discardObs) ObserveLatency(string, float64)            {}
func (discardObs) SetGauge(string, float64)                  {}
func (discardObs) RecordDecision(domain.Decision)            {}
