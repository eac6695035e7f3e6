// Package policy selects a maintenance action from severity scoring, hard
// safety rules and learned reward predictions, and keeps the decision log.
package policy

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

// MissingChannelMode selects how a health report without some channel is handled.
type MissingChannelMode string

const (
	// MissingChannelLenient scores a missing channel as NORMAL.
	MissingChannelLenient MissingChannelMode = "lenient"
	// MissingChannelStrict rejects the report with domain.ErrMissingChannel.
	MissingChannelStrict MissingChannelMode = "strict"
)

func ParseMissingChannelMode(s string) (MissingChannelMode, error) {
	switch m := MissingChannelMode(s); m {
	case MissingChannelLenient, MissingChannelStrict:
		return m, nil
	case "":
		return MissingChannelLenient, nil
	default:
		return "", fmt.Errorf("unknown missing channel mode %q", s)
	}
}

// Predictor is the prediction contract of the experience store.
type Predictor interface {
	Predict(state domain.Reading, action domain.Action) (*domain.Prediction, error)
}

type Option func(*Policy)

func WithMissingChannelMode(m MissingChannelMode) Option {
	return func(p *Policy) {
		if m != "" {
			p.missing = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator overrides the decision ID source (uuid v4 by default).
func WithIDGenerator(fn func() string) Option {
	return func(p *Policy) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// Policy evaluates each tick independently. Its only state is the
// append-only decision log, of which it is the single writer.
type Policy struct {
	predictor Predictor
	missing   MissingChannelMode
	now       func() time.Time
	newID     func() string

	mu  sync.RWMutex
	log []domain.Decision
}

func New(predictor Predictor, opts ...Option) *Policy {
	p := &Policy{
		predictor: predictor,
		missing:   MissingChannelLenient,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Decide scores severity, applies the safety override, otherwise consults
// the predictor for every action, and logs the resulting decision.
func (p *Policy) Decide(state domain.Reading, health domain.Health) (domain.Decision, error) {
	if p.missing == MissingChannelStrict {
		if missing := health.Missing(); len(missing) > 0 {
			return domain.Decision{}, fmt.Errorf("%w: %v", domain.ErrMissingChannel, missing)
		}
	}

	score := Score(health)
	d := domain.Decision{
		ID:          p.newID(),
		Timestamp:   p.now(),
		State:       state,
		Health:      health,
		Score:       score,
		Severity:    Tier(score),
		Predictions: make([]domain.ActionPrediction, 0, domain.ActionCount),
	}

	// Any CRITICAL channel forces a shutdown, even when the weighted tier
	// stays below CRITICAL. Predictions are never consulted on this path.
	if d.Severity == domain.SeverityCritical || health.AnyCritical() {
		d.Action = domain.EmergencyShutdown
		d.Override = true
		p.append(d)
		return d, nil
	}

	for _, a := range domain.Actions() {
		pred, err := p.predictor.Predict(state, a)
		if err != nil {
			return domain.Decision{}, fmt.Errorf("predict %s: %w", a, err)
		}
		if pred != nil {
			d.Predictions = append(d.Predictions, domain.ActionPrediction{Action: a, Prediction: *pred})
		}
	}

	if len(d.Predictions) == 0 {
		d.Action = fallback(d.Severity)
	} else {
		d.Action = best(d.Predictions)
	}

	p.append(d)
	return d, nil
}

func fallback(sev domain.Severity) domain.Action {
	if sev == domain.SeverityWarning {
		return domain.ScheduleMaintenance
	}
	return domain.IncreaseMonitoring
}

// best keeps the first maximum; preds are in enumeration order, so ties go
// to the earliest declared action.
func best(preds []domain.ActionPrediction) domain.Action {
	top := preds[0]
	for _, ap := range preds[1:] {
		if ap.Prediction.PredictedReward > top.Prediction.PredictedReward {
			top = ap
		}
	}
	return top.Action
}

func (p *Policy) append(d domain.Decision) {
	p.mu.Lock()
	p.log = append(p.log, d)
	p.mu.Unlock()
}

// Log returns a snapshot of the decision log.
func (p *Policy) Log() []domain.Decision {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Decision, len(p.log))
	for i, d := range p.log {
		d.Predictions = slices.Clone(d.Predictions)
		out[i] = d
	}
	return out
}

// Latest returns the most recent decision.
func (p *Policy) Latest() (domain.Decision, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.log) == 0 {
		return domain.Decision{}, false
	}
	d := p.log[len(p.log)-1]
	d.Predictions = slices.Clone(d.Predictions)
	return d, true
}

func (p *Policy) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.log)
}
