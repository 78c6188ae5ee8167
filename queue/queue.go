// File: queue/queue.go
// Package queue implements the bounded outbound FIFO: frames that could
// not be sent immediately, retried on channel-open or send-complete.
// Author: momentics <momentics@gmail.com>
//
// Backed by eapache/queue, already a direct dependency of the teacher
// repo (go.mod) though unused by any of its kept code paths — a
// resizable ring buffer that gives O(1) amortized push/pop at either
// end, which is all the FIFO semantics here need.

package queue

import (
	equeue "github.com/eapache/queue"
)

// Item is a single queued, undeliverable frame. Pin may be nil
// ("re-resolve by Dst at flush time") or a specific channel identity
// (e.g. the entry the destination resolved to when the frame was queued).
type Item struct {
	Dst  string
	Pin  any // *channel.Entry, kept untyped here to avoid an import cycle
	Data []byte
}

// Queue is a bounded FIFO of undeliverable frames.
type Queue struct {
	q        *equeue.Queue
	capacity int
}

// New creates a queue bounded at capacity entries. A capacity of zero
// or less leaves the queue unbounded.
func New(capacity int) *Queue {
	return &Queue{q: equeue.New(), capacity: capacity}
}

// Len returns the current number of queued entries.
func (o *Queue) Len() int {
	return o.q.Length()
}

// Enqueue appends item, rejecting if the queue is at capacity (§8
// "queue bound" invariant: |queue| <= max_queue_length at all times).
func (o *Queue) Enqueue(item Item) bool {
	if o.capacity > 0 && o.q.Length() >= o.capacity {
		return false
	}
	o.q.Add(item)
	return true
}

// Flush scans the queue head-to-tail exactly once, calling send for
// each entry. An entry for which send returns true is removed; one for
// which it returns false is retried on the next Flush call. Items
// enqueued by send itself (e.g. a handler issuing a further call) are
// not visited during this pass — they queue behind the snapshot taken
// at Flush's start.
func (o *Queue) Flush(send func(Item) bool) {
	n := o.q.Length()
	for i := 0; i < n; i++ {
		item := o.q.Remove().(Item)
		if !send(item) {
			o.q.Add(item)
		}
	}
}

// Purge removes every entry for which match returns true — used when a
// channel is destroyed, to drop queue entries pinned to it.
func (o *Queue) Purge(match func(Item) bool) {
	n := o.q.Length()
	for i := 0; i < n; i++ {
		item := o.q.Remove().(Item)
		if !match(item) {
			o.q.Add(item)
		}
	}
}
