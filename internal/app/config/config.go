// Package config loads the agent configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/AegisMaint/internal/adapters/opcua"
	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/policy"
	"github.com/ghalamif/AegisMaint/internal/ports"
	"github.com/ghalamif/AegisMaint/internal/scenario"
)

// Source kinds.
const (
	SourceSimulator = "simulator"
	SourceScenario  = "scenario"
	SourceOPCUA     = "opcua"
)

// Journal drivers.
const (
	JournalFile   = "file"
	JournalSQLite = "sqlite"
	JournalNone   = "none"
)

type Config struct {
	Channels  map[string]domain.ChannelConfig `yaml:"channels"`
	Simulator SimulatorConfig                 `yaml:"simulator"`
	Source    SourceConfig                    `yaml:"source"`
	OPCUA     opcua.Config                    `yaml:"opcua"`
	Decision  DecisionConfig                  `yaml:"decision"`
	Effector  EffectorConfig                  `yaml:"effector"`
	Journal   JournalConfig                   `yaml:"journal"`
	Policy    ports.Policy                    `yaml:"policy"`
	Timescale TimescaleConfig                 `yaml:"timescale"`
	Metrics   MetricsConfig                   `yaml:"metrics"`
	Logging   LoggingConfig                   `yaml:"logging"`
}

type SimulatorConfig struct {
	Interval time.Duration `yaml:"interval"`
	Seed     uint64        `yaml:"seed"`
	Clamp    *bool         `yaml:"clamp"`
}

// ClampEnabled defaults to true when clamp is unset.
func (s SimulatorConfig) ClampEnabled() bool {
	return s.Clamp == nil || *s.Clamp
}

type SourceConfig struct {
	Kind     string         `yaml:"kind"`
	Scenario ScenarioConfig `yaml:"scenario"`
}

type ScenarioConfig struct {
	Name     string        `yaml:"name"`
	Step     time.Duration `yaml:"step"`
	Duration time.Duration `yaml:"duration"`
	Pace     time.Duration `yaml:"pace"`
	Seed     uint64        `yaml:"seed"`
}

type DecisionConfig struct {
	MissingChannel string `yaml:"missing_channel"`
}

type EffectorConfig struct {
	FailureRate float64 `yaml:"failure_rate"`
	Seed        uint64  `yaml:"seed"`
}

type JournalConfig struct {
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`
	Path   string `yaml:"path"`
}

// TimescaleConfig enables decision export when ConnString is set.
type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that runs the simulator with in-memory
// state only.
func Default() *Config {
	c := &Config{Journal: JournalConfig{Driver: JournalNone}}
	c.applyDefaults()
	return c
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Simulator.Interval == 0 {
		c.Simulator.Interval = 5 * time.Second
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceSimulator
	}
	if c.Source.Scenario.Step == 0 {
		c.Source.Scenario.Step = scenario.DefaultStep
	}
	if c.Source.Scenario.Duration == 0 {
		c.Source.Scenario.Duration = scenario.DefaultDuration
	}
	if c.Decision.MissingChannel == "" {
		c.Decision.MissingChannel = string(policy.MissingChannelLenient)
	}
	if c.Journal.Driver == "" {
		c.Journal.Driver = JournalFile
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "./data/journal"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "./data/experiences.db"
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 10_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 500
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 50 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "drop"
	}
	if c.Timescale.Table == "" {
		c.Timescale.Table = "maintenance_decisions"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Source.Kind == SourceOPCUA {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	var errs []error
	if _, err := c.ChannelSet(); err != nil {
		errs = append(errs, err)
	}
	switch c.Source.Kind {
	case SourceSimulator:
	case SourceScenario:
		if !isScenario(c.Source.Scenario.Name) {
			errs = append(errs, fmt.Errorf("source.scenario.name: %w: %q", scenario.ErrUnknownScenario, c.Source.Scenario.Name))
		}
	case SourceOPCUA:
		if err := c.OPCUA.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("opcua config: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind %q is not one of simulator, scenario, opcua", c.Source.Kind))
	}
	if _, err := policy.ParseMissingChannelMode(c.Decision.MissingChannel); err != nil {
		errs = append(errs, fmt.Errorf("decision.missing_channel: %w", err))
	}
	if c.Effector.FailureRate < 0 || c.Effector.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("effector.failure_rate must be within [0, 1]"))
	}
	switch c.Journal.Driver {
	case JournalFile, JournalSQLite, JournalNone:
	default:
		errs = append(errs, fmt.Errorf("journal.driver %q is not one of file, sqlite, none", c.Journal.Driver))
	}
	switch c.Policy.OnQueueFull {
	case "block", "drop", "reject":
	default:
		errs = append(errs, fmt.Errorf("policy.on_queue_full %q is not one of block, drop, reject", c.Policy.OnQueueFull))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.Addr == "" {
		errs = append(errs, fmt.Errorf("metrics.addr is required"))
	}
	return errors.Join(errs...)
}

// ChannelSet overlays the configured channels on the defaults.
func (c *Config) ChannelSet() (domain.ChannelSet, error) {
	set := domain.DefaultChannels()
	for name, cc := range c.Channels {
		ch, err := domain.ParseChannel(name)
		if err != nil {
			return domain.ChannelSet{}, fmt.Errorf("channels: %w", err)
		}
		set[ch] = cc
	}
	if err := set.Validate(); err != nil {
		return domain.ChannelSet{}, err
	}
	return set, nil
}

func (c *Config) MissingChannelMode() policy.MissingChannelMode {
	m, _ := policy.ParseMissingChannelMode(c.Decision.MissingChannel)
	return m
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the process logger writing to stderr.
func (c *Config) NewLogger() *slog.Logger {
	lvl, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func isScenario(name string) bool {
	for _, n := range scenario.Names() {
		if n == name {
			return true
		}
	}
	return false
}
