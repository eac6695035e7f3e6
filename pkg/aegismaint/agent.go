// Package aegismaint embeds the predictive maintenance agent: a control loop
// that classifies readings, picks a maintenance action, executes it and
// learns from the reward.
package aegismaint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ghalamif/AegisMaint/internal/adapters/effector"
	"github.com/ghalamif/AegisMaint/internal/adapters/httpapi"
	"github.com/ghalamif/AegisMaint/internal/adapters/journal"
	"github.com/ghalamif/AegisMaint/internal/adapters/observability"
	"github.com/ghalamif/AegisMaint/internal/adapters/opcua"
	"github.com/ghalamif/AegisMaint/internal/adapters/queue"
	"github.com/ghalamif/AegisMaint/internal/adapters/sink"
	"github.com/ghalamif/AegisMaint/internal/adapters/sqlitejournal"
	"github.com/ghalamif/AegisMaint/internal/app/config"
	"github.com/ghalamif/AegisMaint/internal/app/pipeline"
	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/experience"
	"github.com/ghalamif/AegisMaint/internal/metrics"
	"github.com/ghalamif/AegisMaint/internal/policy"
	"github.com/ghalamif/AegisMaint/internal/ports"
	"github.com/ghalamif/AegisMaint/internal/scenario"
	"github.com/ghalamif/AegisMaint/internal/telemetry"
)

// AgentOption customizes the dependencies used by Agent.
type AgentOption func(*agentOverrides)

type agentOverrides struct {
	source     ReadingSource
	effector   Effector
	reward     RewardFunc
	journal    ExperienceJournal
	sink       DecisionSink
	queue      DecisionQueue
	obs        Observability
	registry   *prometheus.Registry
	logger     *slog.Logger
	onTick     func(TickReport)
	maxTicks   int
	httpServer *bool
}

// WithReadingSource replaces the configured source (simulator, scenario, OPC UA).
func WithReadingSource(src ReadingSource) AgentOption {
	return func(o *agentOverrides) { o.source = src }
}

// WithEffector plugs in a real equipment integration.
func WithEffector(e Effector) AgentOption {
	return func(o *agentOverrides) { o.effector = e }
}

// WithRewardFunc overrides the reference reward table.
func WithRewardFunc(fn RewardFunc) AgentOption {
	return func(o *agentOverrides) { o.reward = fn }
}

// WithJournal injects an experience journal. The agent replays it on
// construction but does not close it.
func WithJournal(j ExperienceJournal) AgentOption {
	return func(o *agentOverrides) { o.journal = j }
}

// WithDecisionSink exports decisions to s instead of TimescaleDB.
func WithDecisionSink(s DecisionSink) AgentOption {
	return func(o *agentOverrides) { o.sink = s }
}

// WithDecisionQueue replaces the bounded in-memory export queue. It is only
// used when a sink is configured.
func WithDecisionQueue(q DecisionQueue) AgentOption {
	return func(o *agentOverrides) { o.queue = q }
}

// WithObservability replaces the Prometheus and slog backend.
func WithObservability(obs Observability) AgentOption {
	return func(o *agentOverrides) { o.obs = obs }
}

// WithRegistry registers the agent's metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) AgentOption {
	return func(o *agentOverrides) { o.registry = reg }
}

// WithLogger replaces the logger built from the logging config.
func WithLogger(l *slog.Logger) AgentOption {
	return func(o *agentOverrides) { o.logger = l }
}

// WithOnTick is called after every tick on the control loop goroutine.
func WithOnTick(fn func(TickReport)) AgentOption {
	return func(o *agentOverrides) { o.onTick = fn }
}

// WithMaxTicks stops the control loop after n ticks. Zero means unlimited.
func WithMaxTicks(n int) AgentOption {
	return func(o *agentOverrides) { o.maxTicks = n }
}

// WithHTTPServer toggles the metrics and read-only API server.
func WithHTTPServer(enabled bool) AgentOption {
	return func(o *agentOverrides) { o.httpServer = &enabled }
}

// Agent wires source -> control loop -> queue -> sink for a single asset and
// exposes lifecycle hooks for embedding inside any Go service.
type Agent struct {
	cfg        *Config
	pol        ports.Policy
	logger     *slog.Logger
	registry   *prometheus.Registry
	obs        ports.Observability
	store      *experience.Store
	policy     *policy.Policy
	components pipeline.Components
	source     ports.ReadingSource
	journal    ports.ExperienceJournal
	ownJournal bool
	sink       ports.DecisionSink
	queue      ports.DecisionQueue
	db         *sql.DB
	timescale  *sink.TimescaleSink
	httpSrv    *httpapi.Server
	maxTicks   int

	mu       sync.RWMutex
	latest   domain.TickReport
	hasTick  bool
	ticks    int
	started  bool
	stopped  bool
	loopErr  error
	cancel   context.CancelFunc
	loopDone chan struct{}

	exportCancel context.CancelFunc
	exportDone   chan struct{}
	gaugeStop    chan struct{}
	gaugeDone    chan struct{}
}

// NewAgent bootstraps the default adapters from cfg: the configured reading
// source, the simulated effector, the configured journal (replayed into the
// experience store), Prometheus observability and, when a connection string
// is set, the TimescaleDB decision sink. AgentOption values override any of
// them.
func NewAgent(cfg *Config, opts ...AgentOption) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var o agentOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	channels, err := cfg.ChannelSet()
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:      cfg,
		pol:      cfg.Policy,
		logger:   o.logger,
		registry: o.registry,
		maxTicks: o.maxTicks,
	}
	if a.logger == nil {
		a.logger = cfg.NewLogger()
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	a.obs = o.obs
	if a.obs == nil {
		a.obs = observability.NewPromObs(a.registry, a.logger)
	}

	classifier, err := telemetry.NewClassifier(channels)
	if err != nil {
		return nil, err
	}

	a.store = experience.NewStore()
	if err := a.openJournal(o.journal); err != nil {
		return nil, err
	}
	if err := a.replayJournal(); err != nil {
		_ = a.closeJournal()
		return nil, err
	}

	a.policy = policy.New(a.store, policy.WithMissingChannelMode(cfg.MissingChannelMode()))

	eff := o.effector
	if eff == nil {
		sim, err := effector.NewSimulated(cfg.Effector.FailureRate, cfg.Effector.Seed)
		if err != nil {
			_ = a.closeJournal()
			return nil, err
		}
		eff = sim
	}

	a.source = o.source
	if a.source == nil {
		a.source, err = newSource(cfg, channels, a.logger)
		if err != nil {
			_ = a.closeJournal()
			return nil, err
		}
	}

	a.sink = o.sink
	if a.sink == nil && cfg.Timescale.ConnString != "" {
		a.db, err = sink.Open(cfg.Timescale.ConnString)
		if err != nil {
			_ = a.closeJournal()
			return nil, err
		}
		a.timescale = sink.NewTimescaleSink(a.db, cfg.Timescale.Table)
		a.sink = a.timescale
	}
	if a.sink != nil {
		a.queue = o.queue
		if a.queue == nil {
			a.queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
		}
	}

	onTick := o.onTick
	a.components = pipeline.Components{
		Classifier: classifier,
		Decider:    a.policy,
		Store:      a.store,
		Effector:   eff,
		Reward:     o.reward,
		Journal:    a.journal,
		Queue:      a.queue,
		Obs:        a.obs,
		OnTick: func(t domain.TickReport) {
			a.observeTick(t)
			if onTick != nil {
				onTick(t)
			}
		},
	}

	if o.httpServer == nil || *o.httpServer {
		a.httpSrv = httpapi.NewServer(cfg.Metrics.Addr, a, a.registry, a.logger)
	}
	return a, nil
}

func (a *Agent) openJournal(override ports.ExperienceJournal) error {
	if override != nil {
		a.journal = override
		return nil
	}
	switch a.cfg.Journal.Driver {
	case config.JournalFile:
		j, err := journal.NewFileJournal(a.cfg.Journal.Dir)
		if err != nil {
			return err
		}
		a.journal = j
	case config.JournalSQLite:
		j, err := sqlitejournal.Open(a.cfg.Journal.Path)
		if err != nil {
			return err
		}
		a.journal = j
	case config.JournalNone, "":
		return nil
	default:
		return fmt.Errorf("unknown journal driver %q", a.cfg.Journal.Driver)
	}
	a.ownJournal = true
	return nil
}

func (a *Agent) replayJournal() error {
	if a.journal == nil {
		return nil
	}
	n, err := a.store.Replay(a.journal)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	if n > 0 {
		a.obs.LogInfo("journal_replay_complete", ports.Field{Key: "experiences", Value: n})
		a.obs.SetGauge(ports.MetricStoreSize, float64(n))
	}
	return nil
}

func (a *Agent) closeJournal() error {
	if a.journal == nil || !a.ownJournal {
		return nil
	}
	return a.journal.Close()
}

func newSource(cfg *Config, channels domain.ChannelSet, logger *slog.Logger) (ports.ReadingSource, error) {
	switch cfg.Source.Kind {
	case config.SourceSimulator, "":
		sim, err := telemetry.NewSimulator(channels,
			telemetry.WithSeed(cfg.Simulator.Seed),
			telemetry.WithClamp(cfg.Simulator.ClampEnabled()),
		)
		if err != nil {
			return nil, err
		}
		return telemetry.NewTickerSource(sim, cfg.Simulator.Interval), nil
	case config.SourceScenario:
		sc := cfg.Source.Scenario
		readings, err := scenario.Generate(sc.Name,
			scenario.WithSeed(sc.Seed),
			scenario.WithStep(sc.Step),
			scenario.WithDuration(sc.Duration),
		)
		if err != nil {
			return nil, err
		}
		return scenario.NewSource(readings, sc.Pace), nil
	case config.SourceOPCUA:
		src, err := opcua.NewSource(cfg.OPCUA, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func (a *Agent) observeTick(t domain.TickReport) {
	a.mu.Lock()
	a.latest = t
	a.hasTick = true
	a.ticks++
	stop := a.maxTicks > 0 && a.ticks >= a.maxTicks
	cancel := a.cancel
	a.mu.Unlock()

	if stop && cancel != nil {
		cancel()
	}
}

// Start launches the control loop, the export pipeline and the HTTP server.
// It returns immediately; use Done or Run to wait.
func (a *Agent) Start() error {
	if a == nil {
		return fmt.Errorf("agent is nil")
	}
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("agent already started")
	}
	a.started = true
	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.loopDone = make(chan struct{})
	a.mu.Unlock()

	if a.timescale != nil {
		if err := a.timescale.EnsureSchema(); err != nil {
			cancel()
			close(a.loopDone)
			return a.abortStart(fmt.Errorf("timescale schema: %w", err))
		}
	}

	readings := make(chan domain.Reading)
	go func() {
		defer close(a.loopDone)
		err := pipeline.RunControlLoop(loopCtx, readings, a.components, a.pol)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		a.mu.Lock()
		a.loopErr = err
		a.mu.Unlock()
	}()

	if a.sink != nil {
		exportCtx, exportCancel := context.WithCancel(context.Background())
		a.exportCancel = exportCancel
		a.exportDone = make(chan struct{})
		go func() {
			defer close(a.exportDone)
			pipeline.RunExportPipeline(exportCtx, a.queue, a.sink, a.pol, a.obs)
		}()
	}

	if err := a.source.Start(readings); err != nil {
		cancel()
		<-a.loopDone
		if a.exportCancel != nil {
			a.exportCancel()
			<-a.exportDone
		}
		return a.abortStart(fmt.Errorf("start reading source: %w", err))
	}

	if a.httpSrv != nil {
		a.httpSrv.Start()
	}

	a.gaugeStop = make(chan struct{})
	a.gaugeDone = make(chan struct{})
	go a.recordResourceGauges(a.gaugeStop, time.Second)

	a.obs.LogInfo("agent_started",
		ports.Field{Key: "source", Value: a.cfg.Source.Kind},
		ports.Field{Key: "journal", Value: a.cfg.Journal.Driver},
		ports.Field{Key: "experiences", Value: a.store.Len()})
	return nil
}

// abortStart marks the agent stopped and releases what NewAgent opened, so a
// failed Start needs no Shutdown.
func (a *Agent) abortStart(cause error) error {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	return errors.Join(cause, a.release())
}

// release closes the journal the agent opened and the sink's DB connection.
func (a *Agent) release() error {
	var errs []error
	if err := a.closeJournal(); err != nil {
		errs = append(errs, fmt.Errorf("close journal: %w", err))
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Done is closed once the control loop exits: the source was exhausted, the
// tick limit was reached or the agent was shut down. It is nil before Start.
func (a *Agent) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loopDone
}

// Run starts the agent and blocks until ctx is cancelled or the control loop
// exits on its own, then shuts down gracefully.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the source, lets the in-flight tick finish, flushes the
// export queue and closes the HTTP server, journal and DB connection.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	started := a.started
	cancel := a.cancel
	a.mu.Unlock()

	var errs []error

	if started {
		if err := a.source.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop source: %w", err))
		}
		cancel()
		if err := wait(ctx, a.loopDone); err != nil {
			errs = append(errs, fmt.Errorf("control loop: %w", err))
		}
		if a.exportCancel != nil {
			a.exportCancel()
			if err := wait(ctx, a.exportDone); err != nil {
				errs = append(errs, fmt.Errorf("export pipeline: %w", err))
			}
		}
		if a.gaugeStop != nil {
			close(a.gaugeStop)
			<-a.gaugeDone
		}
		if a.httpSrv != nil {
			if err := a.httpSrv.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := a.release(); err != nil {
		errs = append(errs, err)
	}

	a.mu.RLock()
	loopErr := a.loopErr
	a.mu.RUnlock()
	if loopErr != nil {
		errs = append(errs, loopErr)
	}

	a.obs.LogInfo("agent_stopped", ports.Field{Key: "experiences", Value: a.store.Len()})
	return errors.Join(errs...)
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Agent) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	defer close(a.gaugeDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if a.queue != nil {
				a.obs.SetGauge(ports.MetricQueueLength, float64(a.queue.Len()))
			}
			if a.journal != nil {
				a.obs.SetGauge(ports.MetricJournalSize, float64(a.journal.Stats().SizeBytes))
			}
		}
	}
}

// Config returns the configuration the agent was built from.
func (a *Agent) Config() *Config { return a.cfg }

// Registry returns the Prometheus registry serving /metrics.
func (a *Agent) Registry() *prometheus.Registry { return a.registry }

// Summary aggregates the decision log.
func (a *Agent) Summary() Summary {
	return metrics.Summarize(a.policy.Log())
}

// Decisions returns the newest limit decisions, oldest first. A limit of
// zero or less returns the whole log.
func (a *Agent) Decisions(limit int) []Decision {
	log := a.policy.Log()
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	return log
}

// Latest returns the report of the most recent tick.
func (a *Agent) Latest() (TickReport, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.hasTick
}

// Experiences returns a snapshot of the experience store, in record order.
func (a *Agent) Experiences() []Experience {
	return a.store.Experiences()
}

// Ticks is the number of completed ticks since Start.
func (a *Agent) Ticks() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ticks
}

var _ httpapi.Provider = (*Agent)(nil)
