package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/policy"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
policy:
  max_queue_len: 1000
channels:
  vibration:
    normal_range: {min: 0.4, max: 1.6}
    critical: 2.5
    unit: mm/s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Policy.MaxQueueLen != 1000 {
		t.Fatalf("expected MaxQueueLen 1000, got %d", cfg.Policy.MaxQueueLen)
	}
	if cfg.Policy.IdleSleep != 50*time.Millisecond || cfg.Policy.OnQueueFull != "drop" {
		t.Fatalf("unexpected policy defaults: %+v", cfg.Policy)
	}
	if cfg.Simulator.Interval != 5*time.Second || !cfg.Simulator.ClampEnabled() {
		t.Fatalf("unexpected simulator defaults: %+v", cfg.Simulator)
	}
	if cfg.Source.Kind != SourceSimulator || cfg.Journal.Driver != JournalFile {
		t.Fatalf("unexpected source/journal defaults: %+v %+v", cfg.Source, cfg.Journal)
	}
	if cfg.MissingChannelMode() != policy.MissingChannelLenient {
		t.Fatalf("expected lenient default, got %s", cfg.MissingChannelMode())
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("expected default metrics addr :9100, got %s", cfg.Metrics.Addr)
	}

	set, err := cfg.ChannelSet()
	if err != nil {
		t.Fatalf("channel set: %v", err)
	}
	if set[domain.Vibration].Critical != 2.5 {
		t.Fatalf("expected configured vibration threshold, got %+v", set[domain.Vibration])
	}
	if set[domain.Temperature] != domain.DefaultChannels()[domain.Temperature] {
		t.Fatalf("expected default temperature channel, got %+v", set[domain.Temperature])
	}
}

func TestLoadParsesEverySection(t *testing.T) {
	path := writeConfig(t, `
simulator:
  interval: 250ms
  seed: 7
  clamp: false
source:
  kind: scenario
  scenario:
    name: sudden_failure
    duration: 2h
    pace: 10ms
decision:
  missing_channel: strict
effector:
  failure_rate: 0.1
journal:
  driver: sqlite
  path: /tmp/x.db
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Simulator.ClampEnabled() || cfg.Simulator.Seed != 7 || cfg.Simulator.Interval != 250*time.Millisecond {
		t.Fatalf("unexpected simulator config: %+v", cfg.Simulator)
	}
	if cfg.Source.Scenario.Name != "sudden_failure" || cfg.Source.Scenario.Duration != 2*time.Hour || cfg.Source.Scenario.Step != time.Minute {
		t.Fatalf("unexpected scenario config: %+v", cfg.Source.Scenario)
	}
	if cfg.MissingChannelMode() != policy.MissingChannelStrict {
		t.Fatalf("expected strict mode")
	}
	if lvl, _ := cfg.SlogLevel(); lvl.String() != "DEBUG" {
		t.Fatalf("expected debug level, got %s", lvl)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"channel":    "channels:\n  humidity: {critical: 1}\n",
		"critical":   "channels:\n  temperature: {normal_range: {min: 70, max: 80}, critical: 60}\n",
		"source":     "source:\n  kind: kafka\n",
		"scenario":   "source:\n  kind: scenario\n  scenario: {name: meteor}\n",
		"opcua":      "source:\n  kind: opcua\n",
		"missing":    "decision:\n  missing_channel: loose\n",
		"failure":    "effector:\n  failure_rate: 2\n",
		"journal":    "journal:\n  driver: redis\n",
		"queue full": "policy:\n  on_queue_full: explode\n",
		"log level":  "logging:\n  level: loud\n",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	_, err := Parse([]byte("channels:\n  temperature: {normal_range: {min: 70, max: 80}, critical: 60}\n"))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestDefaultIsValidAndInMemory(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Journal.Driver != JournalNone {
		t.Fatalf("expected in-memory default, got %s", cfg.Journal.Driver)
	}
	if !strings.HasPrefix(cfg.Metrics.Addr, ":") {
		t.Fatalf("unexpected metrics addr %s", cfg.Metrics.Addr)
	}
}
