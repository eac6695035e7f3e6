package ports

import "github.com/ghalamif/AegisMaint/internal/domain"

// DecisionQueue buffers decisions between the policy and the export sink.
type DecisionQueue interface {
	Enqueue(d domain.Decision) bool
	DequeueBatch(max int) []domain.Decision
	Len() int
}
