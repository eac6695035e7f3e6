package ports

import (
	"context"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

// Effector executes a maintenance action against the equipment.
type Effector interface {
	Execute(ctx context.Context, action domain.Action, state domain.Reading) (domain.Outcome, error)
}

// RewardFunc scores an executed action given the health at decision time.
type RewardFunc func(action domain.Action, outcome domain.Outcome, health domain.Health) float64
