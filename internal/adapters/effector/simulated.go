// Package effector executes maintenance actions. Only a simulated effector
// exists; real equipment integrations implement ports.Effector.
package effector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

var effects = [domain.ActionCount]string{
	"no intervention",
	"sampling rate increased",
	"maintenance window booked",
	"crew dispatched",
	"equipment stopped",
}

// Simulated reports success except for a Bernoulli-drawn share of failures.
type Simulated struct {
	mu   sync.Mutex
	fail distuv.Bernoulli
}

// NewSimulated fails executions with probability failureRate in [0, 1].
// seed 0 means time-seeded.
func NewSimulated(failureRate float64, seed uint64) (*Simulated, error) {
	if failureRate < 0 || failureRate > 1 {
		return nil, fmt.Errorf("failure rate %v outside [0, 1]", failureRate)
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Simulated{
		fail: distuv.Bernoulli{P: failureRate, Src: rand.NewSource(seed)},
	}, nil
}

func (s *Simulated) Execute(ctx context.Context, action domain.Action, _ domain.Reading) (domain.Outcome, error) {
	if err := domain.CheckAction(action); err != nil {
		return domain.Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Outcome{}, err
	}

	s.mu.Lock()
	failed := s.fail.Rand() == 1
	s.mu.Unlock()

	if failed {
		return domain.Outcome{Success: false, Effect: action.String() + " failed"}, nil
	}
	return domain.Outcome{Success: true, Effect: effects[action]}, nil
}

var _ ports.Effector = (*Simulated)(nil)
