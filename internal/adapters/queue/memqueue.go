// Package queue buffers decisions between the policy and the export sink.
package queue

import (
	"sync"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// MemQueue is a bounded FIFO ring of decisions.
type MemQueue struct {
	mu   sync.Mutex
	buf  []domain.Decision
	head int
	size int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{buf: make([]domain.Decision, capacity)}
}

// Enqueue reports false when the queue is full.
func (q *MemQueue) Enqueue(d domain.Decision) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = d
	q.size++
	return true
}

// DequeueBatch removes up to max decisions; max <= 0 drains the queue.
func (q *MemQueue) DequeueBatch(max int) []domain.Decision {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return nil
	}
	if max <= 0 || max > q.size {
		max = q.size
	}
	out := make([]domain.Decision, max)
	for i := range out {
		slot := (q.head + i) % len(q.buf)
		out[i] = q.buf[slot]
		q.buf[slot] = domain.Decision{}
	}
	q.head = (q.head + max) % len(q.buf)
	q.size -= max
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *MemQueue) Cap() int { return len(q.buf) }

var _ ports.DecisionQueue = (*MemQueue)(nil)
