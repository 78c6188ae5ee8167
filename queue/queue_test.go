package queue_test

import (
	"testing"

	"github.com/momentics/hioload-rpc/queue"
)

func TestEnqueueRejectsOverCapacity(t *testing.T) {
	q := queue.New(2)
	if !q.Enqueue(queue.Item{Dst: "a"}) {
		t.Fatal("expected first enqueue to succeed")
	}
	if !q.Enqueue(queue.Item{Dst: "b"}) {
		t.Fatal("expected second enqueue to succeed")
	}
	if q.Enqueue(queue.Item{Dst: "c"}) {
		t.Fatal("expected third enqueue to be rejected at capacity")
	}
	if q.Len() != 2 {
		t.Fatalf("expected len 2, got %d", q.Len())
	}
}

func TestFlushRetriesFailedSendsInPlace(t *testing.T) {
	q := queue.New(10)
	q.Enqueue(queue.Item{Dst: "a"})
	q.Enqueue(queue.Item{Dst: "b"})
	q.Enqueue(queue.Item{Dst: "c"})

	var seen []string
	q.Flush(func(item queue.Item) bool {
		seen = append(seen, item.Dst)
		return item.Dst != "b" // "b" fails and stays queued
	})
	if q.Len() != 1 {
		t.Fatalf("expected 1 item remaining, got %d", q.Len())
	}
	if len(seen) != 3 {
		t.Fatalf("expected single pass over 3 items, got %d", len(seen))
	}

	// Second flush: "b" retried, succeeds this time.
	q.Flush(func(item queue.Item) bool { return true })
	if q.Len() != 0 {
		t.Fatalf("expected queue drained, got %d", q.Len())
	}
}

func TestPurgeRemovesMatching(t *testing.T) {
	q := queue.New(10)
	q.Enqueue(queue.Item{Dst: "a", Pin: "ch1"})
	q.Enqueue(queue.Item{Dst: "b", Pin: "ch2"})
	q.Enqueue(queue.Item{Dst: "c", Pin: "ch1"})

	q.Purge(func(item queue.Item) bool { return item.Pin == "ch1" })
	if q.Len() != 1 {
		t.Fatalf("expected 1 item remaining after purge, got %d", q.Len())
	}
}
