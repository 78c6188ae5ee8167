// File: engine/sink.go
// Author: momentics <momentics@gmail.com>
//
// engineSink is the one-way callback a channel is Bind()-ed with
// (api.EventSink, §9): it carries the Engine and the entry it was built
// for, so a channel holds only this small adapter behind the EventSink
// interface, never the Engine type itself.

package engine

import (
	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/channel"
	"github.com/momentics/hioload-rpc/frame"
	"github.com/momentics/hioload-rpc/queue"
)

type engineSink struct {
	eng   *Engine
	entry *channel.Entry
}

var _ api.EventSink = (*engineSink)(nil)

// Each of these four methods is the actual concurrency boundary: a
// transport like wschannel delivers them from its own per-connection
// goroutine, potentially one such goroutine per registered channel
// running at once. Taking the engine lock here, for the duration of
// the whole call, is what makes the registry/handlers/pending-table
// access inside the handle* chain below safe without those internals
// needing any locking of their own.
func (s *engineSink) OnOpen() {
	s.eng.mu.Lock()
	defer s.eng.mu.Unlock()
	s.eng.handleChannelOpen(s.entry)
}

func (s *engineSink) OnFrame(data []byte) {
	s.eng.mu.Lock()
	defer s.eng.mu.Unlock()
	s.eng.handleIncomingBytes(s.entry, data)
}

func (s *engineSink) OnSendComplete(ok bool) {
	s.eng.mu.Lock()
	defer s.eng.mu.Unlock()
	s.eng.handleSendComplete(s.entry, ok)
}

func (s *engineSink) OnClosed() {
	s.eng.mu.Lock()
	defer s.eng.mu.Unlock()
	s.eng.handleChannelClosed(s.entry)
}

func (e *Engine) sinkFor(entry *channel.Entry) api.EventSink {
	return &engineSink{eng: e, entry: entry}
}

func (e *Engine) sinkFactoryFunc() channel.SinkFactory {
	return func(entry *channel.Entry) api.EventSink {
		return e.sinkFor(entry)
	}
}

// handleChannelOpen implements the OPEN row of §4.6.3: mark the entry
// open and not busy, flush anything queued for it (or for the default
// route, or for any now-resolvable on-demand dst), then notify
// observers.
func (e *Engine) handleChannelOpen(entry *channel.Entry) {
	entry.IsOpen = true
	entry.IsBusy = false
	e.flushQueue()
	e.notifyObservers(entry.Dst, true)
}

// handleSendComplete implements the SEND_COMPLETE row: clear busy and
// flush, regardless of whether the send succeeded — a failed send
// still frees the channel for the next attempt. The frame whose send
// failed is logged and not re-queued by the engine.
func (e *Engine) handleSendComplete(entry *channel.Entry, ok bool) {
	entry.IsBusy = false
	if !ok {
		e.log.WithField("dst", entry.Dst).WithField("type", entry.Ch.Type()).Warn("channel reported send failure")
	}
	e.flushQueue()
}

// handleChannelClosed implements the CLOSED row: a persistent channel
// (one that will itself attempt reconnection) stays registered but
// closed, so future sends queue against it; a non-persistent channel's
// entry, and anything queued specifically for it, is discarded.
func (e *Engine) handleChannelClosed(entry *channel.Entry) {
	wasOpen := entry.IsOpen
	entry.IsOpen = false
	entry.IsBusy = false

	if entry.Ch.Persistent() {
		if wasOpen {
			e.notifyObservers(entry.Dst, false)
		}
		return
	}

	e.outq.Purge(func(item queue.Item) bool {
		pinned, ok := item.Pin.(*channel.Entry)
		return ok && pinned == entry
	})
	e.registry.Remove(entry)
	if wasOpen {
		e.notifyObservers(entry.Dst, false)
	}
}

// handleIncomingBytes implements §4.6's incoming path: reject frames
// on a not-open channel, parse, then dispatch by shape.
func (e *Engine) handleIncomingBytes(entry *channel.Entry, data []byte) {
	if !entry.IsOpen {
		e.log.Debug("dropping frame received on a not-open channel")
		return
	}
	f, err := frame.Parse(data)
	if err != nil {
		e.log.WithError(err).Warn("ill-formed frame, discarding")
		return
	}
	e.handleIncomingFrame(entry, f)
}
