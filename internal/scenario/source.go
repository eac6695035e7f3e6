package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// Source replays a trace as a finite ReadingSource. With a zero pace readings
// are emitted as fast as the consumer takes them. out is closed once the
// trace is exhausted, but not when the source is stopped early.
type Source struct {
	readings []domain.Reading
	pace     time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewSource(readings []domain.Reading, pace time.Duration) *Source {
	return &Source{readings: readings, pace: pace}
}

func (s *Source) Start(out chan<- domain.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scenario source already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go s.replay(ctx, out)
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *Source) replay(ctx context.Context, out chan<- domain.Reading) {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.pace > 0 {
		ticker := time.NewTicker(s.pace)
		defer ticker.Stop()
		tick = ticker.C
	}

	for i, r := range s.readings {
		if i > 0 && tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		}
		select {
		case <-ctx.Done():
			return
		case out <- r:
		}
	}
	close(out)
}

var _ ports.ReadingSource = (*Source)(nil)
