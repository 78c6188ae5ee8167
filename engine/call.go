// File: engine/call.go
// Author: momentics <momentics@gmail.com>

package engine

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/frame"
	"github.com/momentics/hioload-rpc/pending"
)

// Call issues an outgoing request (§4.6's call() operation). If cb is
// non-nil, it is invoked exactly once when a matching response frame
// arrives (or never, if none does — the engine keeps no timers, §9
// open question). Call returns whether the frame was accepted for
// delivery or queuing; false means the frame was dropped (unsupported
// scheme, no route, the outbound queue was full, or the engine is
// disabled via cfg.Enable, §6.3).
func (e *Engine) Call(method string, args jsoniter.RawMessage, cb pending.Callback, opts CallOpts) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cfg.Enable {
		e.log.WithError(api.ErrEngineDisabled).Warn("refusing call")
		return false
	}
	id := e.pending.NextID()
	f := frame.NewRequest(id, method, args, cb == nil)
	f.Src = opts.Src
	f.Dst = opts.Dst
	f.Tag = opts.Tag
	f.Key = opts.Key

	ok := e.dispatch(f, opts.Broadcast, opts.NoQueue)
	if ok && cb != nil {
		e.pending.Register(id, cb, opts)
	}
	return ok
}
