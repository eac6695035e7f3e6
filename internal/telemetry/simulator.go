package telemetry

import (
	"iter"
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

// Option customises a Simulator.
type Option func(*Simulator)

// WithSeed makes the noise sequence reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.seed = seed }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// WithClamp controls whether draws are pinned into the normal range. Clamping
// is on by default, which means Read never yields WARNING or CRITICAL values;
// abnormal readings only come from injected or scenario data.
func WithClamp(clamp bool) Option {
	return func(s *Simulator) { s.clamp = clamp }
}

// Simulator produces one noisy reading per channel per call and keeps every
// reading of the run for History.
type Simulator struct {
	*Classifier

	seed  uint64
	clamp bool
	now   func() time.Time
	dists [domain.ChannelCount]distuv.Normal

	mu      sync.RWMutex
	history []domain.Reading
}

func NewSimulator(channels domain.ChannelSet, opts ...Option) (*Simulator, error) {
	cls, err := NewClassifier(channels)
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		Classifier: cls,
		clamp:      true,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.seed == 0 {
		s.seed = uint64(time.Now().UnixNano())
	}

	src := rand.NewSource(s.seed)
	for _, ch := range domain.Channels() {
		cfg := channels[ch]
		s.dists[ch] = distuv.Normal{
			Mu:    cfg.NormalRange.Mid(),
			Sigma: cfg.Sigma(),
			Src:   src,
		}
	}
	return s, nil
}

// Read draws a reading centred on each channel's normal-range midpoint.
func (s *Simulator) Read() domain.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := domain.Reading{Timestamp: s.now()}
	for _, ch := range domain.Channels() {
		v := s.dists[ch].Rand()
		if s.clamp {
			v = s.channels[ch].NormalRange.Clamp(v)
		}
		r.Values[ch] = v
	}
	s.history = append(s.history, r)
	return r
}

// History yields the retained readings newer than now-window. The sequence is
// re-evaluated against the buffer every time it is ranged over.
func (s *Simulator) History(window time.Duration) iter.Seq[domain.Reading] {
	return func(yield func(domain.Reading) bool) {
		s.mu.RLock()
		snapshot := s.history[:len(s.history):len(s.history)]
		s.mu.RUnlock()

		cutoff := s.now().Add(-window)
		for _, r := range snapshot {
			if !r.Timestamp.After(cutoff) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Len reports how many readings have been produced.
func (s *Simulator) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}
