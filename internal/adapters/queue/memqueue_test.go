package queue

import (
	"fmt"
	"testing"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

func decision(id string) domain.Decision {
	return domain.Decision{ID: id, Action: domain.IncreaseMonitoring}
}

func TestMemQueueFIFO(t *testing.T) {
	q := NewMemQueue(4)

	if !q.Enqueue(decision("d1")) || !q.Enqueue(decision("d2")) {
		t.Fatalf("expected successful enqueue")
	}

	batch := q.DequeueBatch(1)
	if len(batch) != 1 || batch[0].ID != "d1" {
		t.Fatalf("unexpected first batch: %+v", batch)
	}

	remaining := q.DequeueBatch(10)
	if len(remaining) != 1 || remaining[0].ID != "d2" {
		t.Fatalf("unexpected second batch: %+v", remaining)
	}
	if q.Len() != 0 || q.DequeueBatch(1) != nil {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
}

func TestMemQueueCapacityAndWrap(t *testing.T) {
	q := NewMemQueue(3)

	for i := range 3 {
		if !q.Enqueue(decision(fmt.Sprintf("d%d", i))) {
			t.Fatalf("expected enqueue %d within capacity", i)
		}
	}
	if q.Enqueue(decision("overflow")) {
		t.Fatalf("enqueue should fail when capacity exceeded")
	}

	q.DequeueBatch(2)
	if !q.Enqueue(decision("d3")) || !q.Enqueue(decision("d4")) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}

	var ids []string
	for _, d := range q.DequeueBatch(0) {
		ids = append(ids, d.ID)
	}
	if fmt.Sprint(ids) != "[d2 d3 d4]" {
		t.Fatalf("expected order across wrap, got %v", ids)
	}
}
