package aegismaint

import (
	"github.com/ghalamif/AegisMaint/internal/adapters/opcua"
	"github.com/ghalamif/AegisMaint/internal/app/config"
	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls the decision export queue.
	Policy = ports.Policy
	// ChannelConfig holds a channel's unit and ranges.
	ChannelConfig = domain.ChannelConfig
	// Range is an inclusive value interval.
	Range = domain.Range
	// SimulatorConfig configures the simulated reading source.
	SimulatorConfig = config.SimulatorConfig
	// SourceConfig selects the reading source.
	SourceConfig = config.SourceConfig
	// ScenarioConfig configures scenario replay.
	ScenarioConfig = config.ScenarioConfig
	// OPCUAConfig holds connection and node details.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig binds a monitored node to a channel.
	OPCUANodeConfig = opcua.NodeConfig
	// JournalConfig selects experience persistence.
	JournalConfig = config.JournalConfig
	// TimescaleConfig configures the decision sink.
	TimescaleConfig = config.TimescaleConfig
	// MetricsConfig configures the HTTP server.
	MetricsConfig = config.MetricsConfig
)

// Source kinds and journal drivers accepted by the config.
const (
	SourceSimulator = config.SourceSimulator
	SourceScenario  = config.SourceScenario
	SourceOPCUA     = config.SourceOPCUA

	JournalFile   = config.JournalFile
	JournalSQLite = config.JournalSQLite
	JournalNone   = config.JournalNone
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig parses and validates YAML bytes.
func ParseConfig(raw []byte) (*Config, error) {
	return config.Parse(raw)
}

// DefaultConfig runs the simulator with the reference channels and no
// persistence.
func DefaultConfig() *Config {
	return config.Default()
}
