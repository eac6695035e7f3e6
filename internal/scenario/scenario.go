// Package scenario fabricates synthetic telemetry traces. Readings are not
// clamped, so traces can reach WARNING and CRITICAL.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

var ErrUnknownScenario = errors.New("unknown scenario")

const (
	NormalOperation    = "normal_operation"
	GradualDegradation = "gradual_degradation"
	SuddenFailure      = "sudden_failure"
	MultipleIssues     = "multiple_issues"
	SeasonalPattern    = "seasonal_pattern"
)

const (
	DefaultStep     = time.Minute
	DefaultDuration = 24 * time.Hour
)

type Option func(*Generator)

func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.seed = seed }
}

func WithStart(t time.Time) Option {
	return func(g *Generator) { g.start = t }
}

func WithStep(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.step = d
		}
	}
}

func WithDuration(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.duration = d
		}
	}
}

// Generator produces fixed-step traces for the named scenarios.
type Generator struct {
	seed     uint64
	start    time.Time
	step     time.Duration
	duration time.Duration
	src      rand.Source
}

// profile returns the mean and standard deviation per channel at trace
// position i of n. at is the offset from the trace start.
type profile func(i, n int, at time.Duration) (mu, sigma [domain.ChannelCount]float64)

var profiles = map[string]profile{
	NormalOperation:    normalOperation,
	GradualDegradation: gradualDegradation,
	SuddenFailure:      suddenFailure,
	MultipleIssues:     multipleIssues,
	SeasonalPattern:    seasonalPattern,
}

// Names lists the known scenarios in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{step: DefaultStep, duration: DefaultDuration}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.seed == 0 {
		g.seed = uint64(time.Now().UnixNano())
	}
	if g.start.IsZero() {
		g.start = time.Now()
	}
	g.src = rand.NewSource(g.seed)
	return g
}

// Len is the number of readings in every trace.
func (g *Generator) Len() int {
	return int(g.duration / g.step)
}

// Generate returns the full trace for name.
func (g *Generator) Generate(name string) ([]domain.Reading, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	n := g.Len()
	out := make([]domain.Reading, n)
	for i := range out {
		at := time.Duration(i) * g.step
		mu, sigma := p(i, n, at)
		r := domain.Reading{Timestamp: g.start.Add(at)}
		for _, ch := range domain.Channels() {
			r.Values[ch] = distuv.Normal{Mu: mu[ch], Sigma: sigma[ch], Src: g.src}.Rand()
		}
		out[i] = r
	}
	return out, nil
}

// Generate is a shortcut for NewGenerator(opts...).Generate(name).
func Generate(name string, opts ...Option) ([]domain.Reading, error) {
	return NewGenerator(opts...).Generate(name)
}

var (
	baseMu    = [domain.ChannelCount]float64{75, 1.0, 100}
	baseSigma = [domain.ChannelCount]float64{1, 0.1, 2}
)

func normalOperation(int, int, time.Duration) (mu, sigma [domain.ChannelCount]float64) {
	return baseMu, baseSigma
}

func gradualDegradation(i, n int, _ time.Duration) (mu, sigma [domain.ChannelCount]float64) {
	progress := float64(i) / float64(n)
	mu, sigma = baseMu, baseSigma
	mu[domain.Temperature] += progress * 15
	mu[domain.Vibration] += progress * 1.5
	return mu, sigma
}

func suddenFailure(i, n int, _ time.Duration) (mu, sigma [domain.ChannelCount]float64) {
	if i < n*7/10 {
		return baseMu, baseSigma
	}
	return [domain.ChannelCount]float64{90, 2.5, 115}, [domain.ChannelCount]float64{2, 0.2, 3}
}

func multipleIssues(i, n int, _ time.Duration) (mu, sigma [domain.ChannelCount]float64) {
	mu, sigma = baseMu, baseSigma
	onset := n * 4 / 10
	if i < onset {
		return mu, sigma
	}
	progress := float64(i-onset) / float64(n-onset)
	mu[domain.Temperature] += progress * 12
	mu[domain.Pressure] += progress * 14
	mu[domain.Vibration] += progress * 0.4
	return mu, sigma
}

func seasonalPattern(_, _ int, at time.Duration) (mu, sigma [domain.ChannelCount]float64) {
	mu, sigma = baseMu, baseSigma
	phase := 2 * math.Pi * at.Hours() / 24
	mu[domain.Temperature] += 6 * math.Sin(phase)
	mu[domain.Pressure] += 2 * math.Sin(phase)
	return mu, sigma
}
