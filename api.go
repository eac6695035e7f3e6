package aegismaint

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	base "github.com/ghalamif/AegisMaint/pkg/aegismaint"
)

// Re-exported errors for convenience.
var (
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
	ErrFeedClosed        = base.ErrFeedClosed
)

// Type aliases so consumers can import github.com/ghalamif/AegisMaint directly.
type (
	Config            = base.Config
	Policy            = base.Policy
	ChannelConfig     = base.ChannelConfig
	Range             = base.Range
	SimulatorConfig   = base.SimulatorConfig
	SourceConfig      = base.SourceConfig
	ScenarioConfig    = base.ScenarioConfig
	OPCUAConfig       = base.OPCUAConfig
	OPCUANodeConfig   = base.OPCUANodeConfig
	JournalConfig     = base.JournalConfig
	TimescaleConfig   = base.TimescaleConfig
	MetricsConfig     = base.MetricsConfig
	Flow              = base.Flow
	FlowOption        = base.FlowOption
	StreamInOption    = base.StreamInOption
	StreamOutOption   = base.StreamOutOption
	Agent             = base.Agent
	AgentOption       = base.AgentOption
	ExternalFeed      = base.ExternalFeed
	DecisionBatchSink = base.DecisionBatchSink
	Channel           = base.Channel
	Reading           = base.Reading
	Health            = base.Health
	Action            = base.Action
	Decision          = base.Decision
	Outcome           = base.Outcome
	Experience        = base.Experience
	TickReport        = base.TickReport
	Summary           = base.Summary
	ReadingSource     = base.ReadingSource
	Effector          = base.Effector
	RewardFunc        = base.RewardFunc
	ExperienceJournal = base.ExperienceJournal
	DecisionSink      = base.DecisionSink
	DecisionQueue     = base.DecisionQueue
	Observability     = base.Observability
)

// Channels, actions, and config enumerations.
const (
	Temperature = base.Temperature
	Vibration   = base.Vibration
	Pressure    = base.Pressure

	NoAction             = base.NoAction
	IncreaseMonitoring   = base.IncreaseMonitoring
	ScheduleMaintenance  = base.ScheduleMaintenance
	ImmediateMaintenance = base.ImmediateMaintenance
	EmergencyShutdown    = base.EmergencyShutdown

	SourceSimulator = base.SourceSimulator
	SourceScenario  = base.SourceScenario
	SourceOPCUA     = base.SourceOPCUA
	JournalFile     = base.JournalFile
	JournalSQLite   = base.JournalSQLite
	JournalNone     = base.JournalNone
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...AgentOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInSource(src ReadingSource) StreamInOption {
	return base.StreamInSource(src)
}

func StreamInFeed(feed *ExternalFeed) StreamInOption {
	return base.StreamInFeed(feed)
}

func StreamInJournal(j ExperienceJournal) StreamInOption {
	return base.StreamInJournal(j)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutEffector(e Effector) StreamOutOption {
	return base.StreamOutEffector(e)
}

func StreamOutReward(fn RewardFunc) StreamOutOption {
	return base.StreamOutReward(fn)
}

func StreamOutSink(s DecisionSink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutQueue(q DecisionQueue) StreamOutOption {
	return base.StreamOutQueue(q)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn DecisionBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

func StreamOutOnTick(fn func(TickReport)) StreamOutOption {
	return base.StreamOutOnTick(fn)
}

// Agent and options.
func NewAgent(cfg *Config, opts ...AgentOption) (*Agent, error) {
	return base.NewAgent(cfg, opts...)
}

func WithReadingSource(src ReadingSource) AgentOption {
	return base.WithReadingSource(src)
}

func WithEffector(e Effector) AgentOption {
	return base.WithEffector(e)
}

func WithRewardFunc(fn RewardFunc) AgentOption {
	return base.WithRewardFunc(fn)
}

func WithJournal(j ExperienceJournal) AgentOption {
	return base.WithJournal(j)
}

func WithDecisionSink(s DecisionSink) AgentOption {
	return base.WithDecisionSink(s)
}

func WithDecisionQueue(q DecisionQueue) AgentOption {
	return base.WithDecisionQueue(q)
}

func WithObservability(obs Observability) AgentOption {
	return base.WithObservability(obs)
}

func WithRegistry(reg *prometheus.Registry) AgentOption {
	return base.WithRegistry(reg)
}

func WithLogger(l *slog.Logger) AgentOption {
	return base.WithLogger(l)
}

func WithOnTick(fn func(TickReport)) AgentOption {
	return base.WithOnTick(fn)
}

func WithMaxTicks(n int) AgentOption {
	return base.WithMaxTicks(n)
}

func WithHTTPServer(enabled bool) AgentOption {
	return base.WithHTTPServer(enabled)
}

// Sink adapters.
func NewCallbackSink(name string, fn DecisionBatchSink) DecisionSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (DecisionSink, <-chan []Decision, func()) {
	return base.NewChannelSink(name, buffer)
}

// External feed.
func NewExternalFeed(buffer int) *ExternalFeed {
	return base.NewExternalFeed(buffer)
}

func NewReading(ts time.Time, values map[Channel]float64) Reading {
	return base.NewReading(ts, values)
}
