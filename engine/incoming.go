// File: engine/incoming.go
// Author: momentics <momentics@gmail.com>
//
// handleIncomingFrame implements the rest of §4.6's incoming path once
// a frame has parsed cleanly: local-identity filtering, learn-on-first-
// contact, and the request/response fork.

package engine

import (
	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/channel"
	"github.com/momentics/hioload-rpc/frame"
	"github.com/momentics/hioload-rpc/pending"
)

func (e *Engine) handleIncomingFrame(entry *channel.Entry, f *frame.Frame) {
	if !e.cfg.Enable {
		e.log.WithError(api.ErrEngineDisabled).Debug("dropping incoming frame")
		return
	}
	if f.Dst != "" && !e.isLocalIDLocked(f.Dst) {
		e.log.WithField("dst", f.Dst).Warn("frame addressed to an unrecognized local identity, discarding")
		return
	}

	// Learn-on-first-contact: an entry created from a registration
	// (AddChannel) or accepted inbound connection typically starts
	// with an empty Dst; the first frame we see from it tells us who
	// it is, so later calls can address it back by that identity.
	if entry.Dst == "" && f.Src != "" {
		entry.Dst = f.Src
	}

	if f.IsRequest() {
		e.handleRequestFrame(entry, f)
		return
	}
	e.handleResponseFrame(entry, f)
}

func (e *Engine) handleRequestFrame(entry *channel.Entry, f *frame.Frame) {
	req := &Request{
		eng:    e,
		id:     f.ID,
		src:    f.Src,
		dst:    f.Dst,
		tag:    f.Tag,
		key:    f.Key,
		auth:   f.Auth,
		method: f.Method,
		args:   f.Args,
		entry:  entry,
	}

	reg, found := e.handlers[f.Method]
	if !found {
		if !f.NoResponse {
			req.RespondError(404, "No handler for %s", f.Method)
		}
		return
	}
	req.argsFmt = reg.argsFmt

	if e.prehandler != nil && !e.prehandler(req) {
		return
	}
	reg.cb(req)
}

func (e *Engine) handleResponseFrame(entry *channel.Entry, f *frame.Frame) {
	if f.ID == 0 {
		e.log.Warn("response frame with id 0, discarding")
		return
	}
	cb, _, ok := e.pending.Take(f.ID)
	if !ok {
		// Either a duplicate response for an already-answered
		// request, or a response to an id we never sent (or already
		// reaped) — both are silently discarded, not an error (§4.6).
		return
	}
	cb(f.Result, f.ErrorCode(), f.ErrorMessage(), pending.ResponseInfo{ChannelType: entry.Ch.Type()})
}
