package aegismaint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

// ErrFeedClosed is returned by Publish once the feed is closed or stopped.
var ErrFeedClosed = errors.New("aegismaint: feed closed")

// ExternalFeed is a ReadingSource driven by the caller: readings published
// from any goroutine reach the control loop in publish order. Closing the
// feed ends the control loop once the buffered readings are consumed, the
// way a finite scenario does.
type ExternalFeed struct {
	in   chan domain.Reading
	done chan struct{}

	mu      sync.RWMutex
	closed  bool
	started bool

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewExternalFeed buffers up to buffer readings before Publish blocks.
func NewExternalFeed(buffer int) *ExternalFeed {
	if buffer < 0 {
		buffer = 0
	}
	return &ExternalFeed{
		in:   make(chan domain.Reading, buffer),
		done: make(chan struct{}),
	}
}

func (f *ExternalFeed) Start(out chan<- domain.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return fmt.Errorf("external feed already started")
	}
	f.started = true

	f.wg.Add(1)
	go f.forward(out)
	return nil
}

func (f *ExternalFeed) forward(out chan<- domain.Reading) {
	defer f.wg.Done()
	for {
		select {
		case <-f.done:
			return
		case r, ok := <-f.in:
			if !ok {
				close(out)
				return
			}
			select {
			case <-f.done:
				return
			case out <- r:
			}
		}
	}
}

// Publish hands r to the control loop, blocking while the buffer is full.
func (f *ExternalFeed) Publish(ctx context.Context, r Reading) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrFeedClosed
	}

	select {
	case f.in <- r:
		return nil
	case <-f.done:
		return ErrFeedClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further readings. Readings already published are still
// delivered, after which the control loop exits.
func (f *ExternalFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.in)
	return nil
}

// Stop abandons undelivered readings and stops forwarding. The agent calls
// it during shutdown.
func (f *ExternalFeed) Stop() error {
	f.stopOnce.Do(func() { close(f.done) })
	f.wg.Wait()
	return nil
}

var _ ReadingSource = (*ExternalFeed)(nil)
