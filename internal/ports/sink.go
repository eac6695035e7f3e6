package ports

import "github.com/ghalamif/AegisMaint/internal/domain"

// DecisionSink exports batches of decisions to a downstream system.
type DecisionSink interface {
	WriteBatch(decisions []domain.Decision) error
	Name() string
}
