// File: engine/request.go
// Author: momentics <momentics@gmail.com>

package engine

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/momentics/hioload-rpc/channel"
	"github.com/momentics/hioload-rpc/digestauth"
	"github.com/momentics/hioload-rpc/frame"
	"github.com/momentics/hioload-rpc/queue"
)

// AuthInfo carries the result of an optional §4.8 auth check, set by
// Authenticate and readable by a handler afterward.
type AuthInfo struct {
	Username      string
	Authenticated bool
}

// Request is the handle a matched handler receives. It must call
// exactly one of Respond / RespondError before returning; a handler
// that does neither silently leaks the pending correlation on the
// caller's side (the caller's request will eventually time out on its
// own terms, since the engine keeps no timers, §9).
type Request struct {
	eng *Engine

	id     int64
	src    string
	dst    string
	tag    string
	key    string
	auth   jsoniter.RawMessage
	method string
	args   jsoniter.RawMessage

	argsFmt string
	entry   *channel.Entry

	consumed bool

	AuthInfo AuthInfo
}

// Method is the dispatched RPC method name.
func (r *Request) Method() string { return r.method }

// Args is the raw JSON args payload (possibly empty).
func (r *Request) Args() jsoniter.RawMessage { return r.args }

// Src is the originating src field of the request frame.
func (r *Request) Src() string { return r.src }

// Tag is the request frame's tag field, echoed back on the response.
func (r *Request) Tag() string { return r.tag }

// ArgsFormat is the handler's registered argsFmt, exposed for
// RPC.Describe.
func (r *Request) ArgsFormat() string { return r.argsFmt }

// ChannelType reports the transport type of the channel the request
// arrived on, e.g. "ws".
func (r *Request) ChannelType() string {
	if r.entry == nil || r.entry.Ch == nil {
		return ""
	}
	return r.entry.Ch.Type()
}

// ChannelInfo reports transport diagnostics for the channel the
// request arrived on.
func (r *Request) ChannelInfo() string {
	if r.entry == nil || r.entry.Ch == nil {
		return ""
	}
	return r.entry.Ch.Info()
}

// Authenticate verifies this request's auth field against checker
// (§4.8). A handler composes this explicitly; the engine never enforces
// auth on its own.
//
// It returns (true, false) on success, populating AuthInfo. It returns
// (false, false) on an ordinary auth mismatch or absent auth field —
// the request handle is still live and the handler decides what to do
// next (e.g. respond 401, or proceed unauthenticated). It returns
// (false, true) when checker could not open its credential store at
// all: Authenticate has already called RespondError(500, ...) itself
// in that case, consuming the handle, and the caller must return
// immediately without touching req again.
func (r *Request) Authenticate(checker *digestauth.Checker) (ok bool, consumed bool) {
	if checker == nil {
		return false, false
	}
	username, ok, err := checker.Check(&frame.Frame{Method: r.method, Auth: r.auth})
	if err != nil {
		r.RespondError(500, "auth check failed: %v", err)
		return false, true
	}
	if !ok {
		return false, false
	}
	r.AuthInfo = AuthInfo{Username: username, Authenticated: true}
	return true, false
}

// Respond sends a success response carrying result, consuming the
// request handle. A second call (by mistake, after an earlier
// Respond/RespondError) is a no-op.
func (r *Request) Respond(result jsoniter.RawMessage) {
	if r.consumed {
		r.eng.log.WithField("method", r.method).Warn("handler responded to an already-consumed request, ignoring")
		return
	}
	r.consumed = true
	f := frame.NewResult(r.id, result)
	f.Src = r.dst
	f.Dst = r.src
	f.Tag = r.tag
	r.send(f)
}

// RespondError sends an error response, consuming the request handle.
func (r *Request) RespondError(code int, format string, args ...any) {
	if r.consumed {
		return
	}
	r.consumed = true
	f := frame.NewErrorResponse(r.id, code, fmt.Sprintf(format, args...))
	f.Src = r.dst
	f.Dst = r.src
	f.Tag = r.tag
	r.send(f)
}

// send delivers f over the channel the request arrived on, queuing it
// pinned to that channel when the channel cannot take it right now.
func (r *Request) send(f *frame.Frame) {
	data, err := frame.Serialize(f, r.eng.primaryLocalID())
	if err != nil || r.eng.trySend(r.entry, data) {
		return
	}
	r.eng.outq.Enqueue(queue.Item{Dst: f.Dst, Pin: r.entry, Data: data})
}
