package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghalamif/AegisMaint/internal/adapters/queue"
	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/experience"
	"github.com/ghalamif/AegisMaint/internal/policy"
	"github.com/ghalamif/AegisMaint/internal/ports"
	"github.com/ghalamif/AegisMaint/internal/telemetry"
)

var (
	normalReading   = domain.Reading{Values: [domain.ChannelCount]float64{75, 1.0, 100}}
	criticalReading = domain.Reading{Values: [domain.ChannelCount]float64{90, 1.0, 100}}
)

func newComponents(t *testing.T) (Components, *experience.Store, *policy.Policy, *mockObs) {
	t.Helper()
	cls, err := telemetry.NewClassifier(domain.DefaultChannels())
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	store := experience.NewStore()
	pol := policy.New(store)
	obs := &mockObs{}
	return Components{
		Classifier: cls,
		Decider:    pol,
		Store:      store,
		Effector:   &mockEffector{},
		Obs:        obs,
	}, store, pol, obs
}

func TestTickLearnsFromExperience(t *testing.T) {
	c, store, pol, obs := newComponents(t)
	ctx := context.Background()

	res, err := c.Tick(ctx, criticalReading, ports.Policy{})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Decision.Action != domain.EmergencyShutdown || res.Reward != -5 || !res.Recorded {
		t.Fatalf("unexpected tick result: %+v", res)
	}
	if res.Experience.Seq != 1 || store.Len() != 1 || pol.Len() != 1 {
		t.Fatalf("expected one experience and one decision")
	}

	for range 3 {
		if _, err := c.Tick(ctx, normalReading, ports.Policy{}); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	// Store now has shutdown(-5) and increase_monitoring(0) experiences.
	res, err = c.Tick(ctx, normalReading, ports.Policy{})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(res.Decision.Predictions) != 2 || res.Decision.Action != domain.IncreaseMonitoring {
		t.Fatalf("expected learned selection of increase_monitoring, got %+v", res.Decision)
	}
	if obs.count(ports.MetricTicks) != 5 || obs.count(ports.MetricExperiences) != 5 {
		t.Fatalf("unexpected counters: %v", obs.counters)
	}
	if len(obs.decisions) != 5 {
		t.Fatalf("expected 5 recorded decisions, got %d", len(obs.decisions))
	}
}

func TestTickRecordsEffectorFailureAsLowReward(t *testing.T) {
	c, store, _, obs := newComponents(t)
	c.Effector = &mockEffector{err: errors.New("plc offline")}
	c.Reward = func(domain.Action, domain.Outcome, domain.Health) float64 { return -1 }

	res, err := c.Tick(context.Background(), normalReading, ports.Policy{})
	if err != nil {
		t.Fatalf("tick should survive effector failure: %v", err)
	}
	if res.Outcome.Success || res.Outcome.Effect != "plc offline" || res.Reward != -1 {
		t.Fatalf("unexpected outcome %+v reward %v", res.Outcome, res.Reward)
	}
	if store.Len() != 1 || obs.count(ports.MetricEffectorFailures) != 1 {
		t.Fatalf("expected failure to be recorded and counted")
	}
}

func TestTickSkipsRecordWhenJournalFails(t *testing.T) {
	c, store, pol, obs := newComponents(t)
	j := &mockJournal{fail: true}
	c.Journal = j

	res, err := c.Tick(context.Background(), normalReading, ports.Policy{})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Recorded || store.Len() != 0 {
		t.Fatalf("experience must not be recorded without a journal entry")
	}
	if pol.Len() != 1 || obs.count(ports.MetricJournalErrors) != 1 || len(obs.critical) != 1 {
		t.Fatalf("expected logged decision and journal error, got %d / %v", pol.Len(), obs.counters)
	}

	j.fail = false
	if _, err := c.Tick(context.Background(), normalReading, ports.Policy{}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if store.Len() != 1 || len(j.entries) != 1 || j.entries[0].Seq != 1 {
		t.Fatalf("journal and store out of step: store=%d journal=%+v", store.Len(), j.entries)
	}
}

func TestTickRejectsMissingChannelInStrictMode(t *testing.T) {
	c, store, _, _ := newComponents(t)
	c.Decider = policy.New(store, policy.WithMissingChannelMode(policy.MissingChannelStrict))
	c.Classifier = classifierFunc(func(domain.Reading) domain.Health { return domain.Health{} })

	if _, err := c.Tick(context.Background(), normalReading, ports.Policy{}); !errors.Is(err, domain.ErrMissingChannel) {
		t.Fatalf("expected ErrMissingChannel, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("rejected tick must not record anything")
	}
}

func TestRunControlLoopStopsWhenSourceCloses(t *testing.T) {
	c, store, _, _ := newComponents(t)
	q := queue.NewMemQueue(10)
	c.Queue = q
	var ticks atomic.Int32
	c.OnTick = func(domain.TickReport) { ticks.Add(1) }

	in := make(chan domain.Reading, 3)
	in <- normalReading
	in <- criticalReading
	in <- normalReading
	close(in)

	if err := RunControlLoop(context.Background(), in, c, ports.Policy{OnQueueFull: "drop"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.Len() != 3 || q.Len() != 3 || ticks.Load() != 3 {
		t.Fatalf("expected 3 ticks, got store=%d queue=%d ticks=%d", store.Len(), q.Len(), ticks.Load())
	}
}

func TestRunControlLoopCancellation(t *testing.T) {
	c, _, _, _ := newComponents(t)
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan domain.Reading)

	done := make(chan error, 1)
	go func() { done <- RunControlLoop(ctx, in, c, ports.Policy{}) }()

	in <- normalReading
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("loop did not stop")
	}
}

func TestRunControlLoopRequiresComponents(t *testing.T) {
	if err := RunControlLoop(context.Background(), nil, Components{}, ports.Policy{}); err == nil {
		t.Fatalf("expected error for missing components")
	}
}

func TestEnqueueWithPolicyBlock(t *testing.T) {
	q := &mockQueue{failures: 1}
	pol := ports.Policy{OnQueueFull: "block", IdleSleep: time.Millisecond}

	if ok := enqueueWithPolicy(context.Background(), q, domain.Decision{}, pol, &mockObs{}); !ok {
		t.Fatalf("expected enqueue to eventually succeed")
	}
	if q.calls != 2 {
		t.Fatalf("expected two enqueue attempts, got %d", q.calls)
	}
}

func TestEnqueueWithPolicyBlockHonoursCancel(t *testing.T) {
	q := &mockQueue{failAlways: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if enqueueWithPolicy(ctx, q, domain.Decision{}, ports.Policy{OnQueueFull: "block"}, &mockObs{}) {
		t.Fatalf("expected cancelled blocking enqueue to give up")
	}
}

func TestEnqueueWithPolicyDrop(t *testing.T) {
	q := &mockQueue{failAlways: true}
	obs := &mockObs{}

	if ok := enqueueWithPolicy(context.Background(), q, domain.Decision{}, ports.Policy{OnQueueFull: "drop"}, obs); ok {
		t.Fatalf("expected enqueueWithPolicy to fail")
	}
	if len(obs.errors) == 0 {
		t.Fatalf("expected drop to log an error")
	}
}

func TestRunExportPipelineRetriesAndFlushes(t *testing.T) {
	q := queue.NewMemQueue(10)
	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(domain.Decision{ID: id})
	}
	sink := &mockSink{failures: 1}
	obs := &mockObs{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunExportPipeline(ctx, q, sink, ports.Policy{MaxBatchSize: 2, IdleSleep: time.Millisecond}, obs)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sink.total() < 3 {
		select {
		case <-deadline:
			t.Fatalf("export did not complete, wrote %d", sink.total())
		case <-time.After(time.Millisecond):
		}
	}
	q.Enqueue(domain.Decision{ID: "d"})
	cancel()
	<-done

	if sink.total() != 4 {
		t.Fatalf("expected final flush to export 4 decisions, got %d", sink.total())
	}
	if got := sink.ids(); got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("expected FIFO export after retry, got %v", got)
	}
	if obs.count(ports.MetricSinkErrors) != 1 {
		t.Fatalf("expected one sink error, got %v", obs.counters)
	}
}

type classifierFunc func(domain.Reading) domain.Health

func (f classifierFunc) Classify(r domain.Reading) domain.Health { return f(r) }

type mockEffector struct {
	err error
}

func (m *mockEffector) Execute(_ context.Context, a domain.Action, _ domain.Reading) (domain.Outcome, error) {
	if m.err != nil {
		return domain.Outcome{}, m.err
	}
	return domain.Outcome{Success: true, Effect: a.String()}, nil
}

type mockJournal struct {
	fail    bool
	entries []domain.Experience
}

func (m *mockJournal) Append(e domain.Experience) (ports.EntryID, error) {
	if m.fail {
		return 0, errors.New("disk full")
	}
	m.entries = append(m.entries, e)
	return ports.EntryID(len(m.entries)), nil
}

func (m *mockJournal) Iterate(ports.EntryID, func(ports.EntryID, domain.Experience) error) error {
	return nil
}

func (m *mockJournal) Stats() ports.JournalStats {
	return ports.JournalStats{Entries: uint64(len(m.entries))}
}

func (m *mockJournal) Close() error { return nil }

type mockQueue struct {
	failures   int
	failAlways bool
	calls      int
}

func (m *mockQueue) Enqueue(domain.Decision) bool {
	m.calls++
	if m.failAlways {
		return false
	}
	if m.failures > 0 {
		m.failures--
		return false
	}
	return true
}

func (m *mockQueue) DequeueBatch(int) []domain.Decision { return nil }
func (m *mockQueue) Len() int                          { return 0 }

type mockSink struct {
	mu       sync.Mutex
	failures int
	written  []domain.Decision
}

func (m *mockSink) WriteBatch(ds []domain.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("sink unavailable")
	}
	m.written = append(m.written, ds...)
	return nil
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}

func (m *mockSink) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.written))
	for i, d := range m.written {
		out[i] = d.ID
	}
	return out
}

type mockObs struct {
	mu        sync.Mutex
	errors    []error
	critical  []error
	counters  map[string]float64
	decisions []domain.Decision
}

func (m *mockObs) LogInfo(string, ...ports.Field) {}

func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}

func (m *mockObs) LogCritical(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.critical = append(m.critical, err)
}

func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]float64)
	}
	m.counters[name] += v
}

func (m *mockObs) count(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}

func (m *mockObs) RecordDecision(d domain.Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
}
