package aegismaint

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → StreamIN → StreamOUT
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []AgentOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the reading source and learning side of the agent.
type StreamInOption func(*Flow)

// StreamOutOption configures the effector and decision export side of the agent.
type StreamOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building an agent.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw AgentOption values to the builder.
func (f *Flow) Options(opts ...AgentOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN records input-side overrides (source, journal, observability).
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT records output-side overrides and builds an Agent ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Agent, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewAgent(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT + agent.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	agent, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return agent.Run(ctx)
}

// WithFlowOptions appends AgentOption values during Conf.
func WithFlowOptions(opts ...AgentOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInSource injects a custom reading source (MQTT, Modbus, replay files).
func StreamInSource(src ReadingSource) StreamInOption {
	return func(f *Flow) {
		if f != nil && src != nil {
			f.appendOptions(WithReadingSource(src))
		}
	}
}

// StreamInFeed drives the agent from readings the caller publishes.
func StreamInFeed(feed *ExternalFeed) StreamInOption {
	return func(f *Flow) {
		if f != nil && feed != nil {
			f.appendOptions(WithReadingSource(feed))
		}
	}
}

// StreamInJournal lets callers bring their own experience journal.
func StreamInJournal(j ExperienceJournal) StreamInOption {
	return func(f *Flow) {
		if f != nil && j != nil {
			f.appendOptions(WithJournal(j))
		}
	}
}

// StreamInObservability overrides the default Prometheus-based observability stack.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutEffector routes actions to a real equipment integration.
func StreamOutEffector(e Effector) StreamOutOption {
	return func(f *Flow) {
		if f != nil && e != nil {
			f.appendOptions(WithEffector(e))
		}
	}
}

// StreamOutReward overrides the reference reward table.
func StreamOutReward(fn RewardFunc) StreamOutOption {
	return func(f *Flow) {
		if f != nil && fn != nil {
			f.appendOptions(WithRewardFunc(fn))
		}
	}
}

// StreamOutSink injects a custom DecisionSink implementation.
func StreamOutSink(s DecisionSink) StreamOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithDecisionSink(s))
		}
	}
}

// StreamOutQueue swaps the in-memory export queue for a caller-provided implementation.
func StreamOutQueue(q DecisionQueue) StreamOutOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithDecisionQueue(q))
		}
	}
}

// StreamOutObservability replaces the default observability backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutCallback installs a sink built from a simple callback function.
func StreamOutCallback(name string, fn DecisionBatchSink) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithDecisionSink(NewCallbackSink(name, fn)))
		}
	}
}

// StreamOutOnTick observes every tick report.
func StreamOutOnTick(fn func(TickReport)) StreamOutOption {
	return func(f *Flow) {
		if f != nil && fn != nil {
			f.appendOptions(WithOnTick(fn))
		}
	}
}

func (f *Flow) appendOptions(opts ...AgentOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
