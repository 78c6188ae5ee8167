// File: frame/frame.go
// Package frame implements the wire-format RPC frame described in the
// runtime's external interface: a single JSON object per message,
// symmetric addressing, and a method/result/error payload shape.
// Author: momentics <momentics@gmail.com>
//
// Grounded on the wire shape of the prior mg_rpc Go port
// (other_examples/.../mgrpc2.go: Frame/FrameError/FrameAuth) and on the
// teacher's struct-per-wire-message convention (core/protocol.WSFrame).

package frame

import jsoniter "github.com/json-iterator/go"

// Frame is a value object representing a single RPC wire message.
// method non-empty implies a request; method empty and ID non-zero
// implies a response. Any other shape is ill-formed (see Parse).
type Frame struct {
	Version int    // "v", optional, default 0
	ID      int64  // 0 means "no correlation expected"
	Src     string // sender identity, may be empty
	Dst     string // recipient identity, may be empty ("default route")
	Tag     string // opaque correlation tag, may be empty
	Key     string // opaque routing/session key, may be empty

	Auth jsoniter.RawMessage // digest-auth challenge response, opaque to the codec

	Method     string              // non-empty iff this is a request
	NoResponse bool                // "nr": true, request only — caller expects no response
	Args       jsoniter.RawMessage // request payload

	Result jsoniter.RawMessage // success response payload
	Error  *Error              // non-nil iff this is an error response
}

// Error is the wire shape of a response's "error" object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// IsRequest reports whether f has request shape.
func (f *Frame) IsRequest() bool { return f.Method != "" }

// IsResponse reports whether f has response shape (including error
// responses, which also carry Method == "").
func (f *Frame) IsResponse() bool { return f.Method == "" && f.ID != 0 }

// ErrorCode returns the response error code, or 0 if f carries a
// success result or is not a response at all.
func (f *Frame) ErrorCode() int {
	if f.Error == nil {
		return 0
	}
	return f.Error.Code
}

// ErrorMessage returns the response error message, or "" otherwise.
func (f *Frame) ErrorMessage() string {
	if f.Error == nil {
		return ""
	}
	return f.Error.Message
}
