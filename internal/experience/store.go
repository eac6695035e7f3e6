// Package experience holds the append-only experience store and its
// same-action reward estimator.
package experience

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// MinExperiences is the number of recorded experiences required before the
// store produces any prediction.
const MinExperiences = 3

// Store accumulates experiences and predicts the reward of an action as the
// mean reward of past experiences with the same action. State is not
// compared; similarity is by action identity only.
//
// The control loop is the single writer. The lock only lets concurrent
// readers take consistent snapshots.
type Store struct {
	mu          sync.RWMutex
	experiences []domain.Experience
	rewards     [domain.ActionCount][]float64
}

func NewStore() *Store {
	return &Store{}
}

// Record appends e, assigning its sequence number. Only an action outside the
// enumeration is rejected.
func (s *Store) Record(e domain.Experience) (domain.Experience, error) {
	if err := domain.CheckAction(e.Action); err != nil {
		return domain.Experience{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.Seq = uint64(len(s.experiences)) + 1
	s.experiences = append(s.experiences, e)
	s.rewards[e.Action] = append(s.rewards[e.Action], e.Reward)
	return e, nil
}

// Predict returns nil when fewer than MinExperiences are recorded or when no
// experience used the action.
func (s *Store) Predict(_ domain.Reading, action domain.Action) (*domain.Prediction, error) {
	if err := domain.CheckAction(action); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.experiences)
	if total < MinExperiences {
		return nil, nil
	}
	same := s.rewards[action]
	if len(same) == 0 {
		return nil, nil
	}
	return &domain.Prediction{
		PredictedReward: stat.Mean(same, nil),
		Confidence:      float64(len(same)) / float64(total),
	}, nil
}

// Experiences returns a copy of every record in append order.
func (s *Store) Experiences() []domain.Experience {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Experience, len(s.experiences))
	copy(out, s.experiences)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.experiences)
}

// Replay loads every journaled experience, in journal order, into an empty store.
func (s *Store) Replay(j ports.ExperienceJournal) (int, error) {
	if s.Len() != 0 {
		return 0, fmt.Errorf("experience replay requires an empty store")
	}
	var n int
	err := j.Iterate(1, func(id ports.EntryID, e domain.Experience) error {
		if _, err := s.Record(e); err != nil {
			return fmt.Errorf("journal entry %d: %w", id, err)
		}
		n++
		return nil
	})
	return n, err
}
