// File: engine/dispatch.go
// Author: momentics <momentics@gmail.com>
//
// dispatch implements §4.6's send path for Call (outgoing requests):
// resolve destination, strip dst on a freshly dialed on-demand channel,
// serialize, attempt an immediate send, and on failure enqueue (unless
// told not to) rather than drop. Responses do not go through dispatch:
// Request.Respond/RespondError send them back over the channel the
// request arrived on (see Request.send).

package engine

import (
	"github.com/momentics/hioload-rpc/channel"
	"github.com/momentics/hioload-rpc/frame"
	"github.com/momentics/hioload-rpc/queue"
)

// dispatch sends f, or queues it, per the policy above. broadcast
// fans f out to every broadcast-enabled open channel and never
// queues — a broadcast that reaches zero channels is simply a no-op,
// not a failure worth retrying. noQueue forbids the enqueue fallback
// (used by callers that would rather know immediately that delivery
// did not happen).
func (e *Engine) dispatch(f *frame.Frame, broadcast bool, noQueue bool) bool {
	if broadcast {
		return e.dispatchBroadcast(f)
	}

	entry, created, err := e.registry.Resolve(f.Dst, e.factory, e.sinkFactoryFunc())
	if err != nil {
		e.log.WithError(err).WithField("dst", f.Dst).Warn("resolve destination failed")
		return false
	}

	effective := *f
	if created {
		// A freshly dialed on-demand channel is now a point-to-point
		// link: the peer at the other end needs no dst to know the
		// frame is for it.
		effective.Dst = ""
	}
	data, err := frame.Serialize(&effective, e.primaryLocalID())
	if err != nil {
		e.log.WithError(err).Error("serialize frame")
		return false
	}

	if e.trySend(entry, data) {
		return true
	}
	if noQueue {
		return false
	}
	var pin any
	if entry != nil {
		pin = entry
	}
	ok := e.outq.Enqueue(queue.Item{Dst: f.Dst, Pin: pin, Data: data})
	if !ok {
		e.log.WithField("dst", f.Dst).Warn("outbound queue full, dropping frame")
	}
	return ok
}

func (e *Engine) dispatchBroadcast(f *frame.Frame) bool {
	data, err := frame.Serialize(f, e.primaryLocalID())
	if err != nil {
		e.log.WithError(err).Error("serialize broadcast frame")
		return false
	}
	sent := false
	for _, entry := range e.registry.All() {
		if !entry.IsOpen || !entry.Ch.BroadcastEnabled() {
			continue
		}
		if e.trySend(entry, data) {
			sent = true
		}
	}
	return sent
}

// trySend hands data to entry's channel if it is open and not already
// mid-send. A nil entry (unresolved destination) always fails.
func (e *Engine) trySend(entry *channel.Entry, data []byte) bool {
	if entry == nil || !entry.IsOpen || entry.IsBusy {
		return false
	}
	if entry.Ch.SendFrame(data) {
		entry.IsBusy = true
		return true
	}
	return false
}

// flushQueue retries every queued frame once, in FIFO order, against
// its pinned entry if it has one or else a fresh destination resolve.
// Frames that still cannot be sent stay queued in their original
// relative order (queue.Queue.Flush preserves this).
func (e *Engine) flushQueue() {
	e.outq.Flush(func(item queue.Item) bool {
		var entry *channel.Entry
		if item.Pin != nil {
			entry, _ = item.Pin.(*channel.Entry)
		} else {
			var err error
			entry, _, err = e.registry.Resolve(item.Dst, e.factory, e.sinkFactoryFunc())
			if err != nil {
				return false
			}
		}
		return e.trySend(entry, item.Data)
	})
}
