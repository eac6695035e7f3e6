package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// TickerSource emits one simulated reading immediately and then one per interval.
type TickerSource struct {
	sim      *Simulator
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewTickerSource(sim *Simulator, interval time.Duration) *TickerSource {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &TickerSource{sim: sim, interval: interval}
}

func (t *TickerSource) Start(out chan<- domain.Reading) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return fmt.Errorf("simulator source already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.started = true

	t.wg.Add(1)
	go t.loop(ctx, out)
	return nil
}

func (t *TickerSource) Stop() error {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.started = false
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
	return nil
}

func (t *TickerSource) loop(ctx context.Context, out chan<- domain.Reading) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		r := t.sim.Read()
		select {
		case <-ctx.Done():
			return
		case out <- r:
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

var _ ports.ReadingSource = (*TickerSource)(nil)
