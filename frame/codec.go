// File: frame/codec.go
// Package frame: Parse/Serialize, the two thin JSON helpers the rpc
// core consumes (JSON encoding itself is an external collaborator —
// here backed by json-iterator/go, the pack's fast-path JSON library,
// grounded on rockstar-0000-aistore's use of the same package).
// Author: momentics <momentics@gmail.com>

package frame

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/momentics/hioload-rpc/api"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// wireFrame mirrors the on-wire JSON object. Field declaration order
// drives marshal order for jsoniter (which, like encoding/json,
// serializes struct fields in declaration order), giving the
// "id, src, dst, tag, key, <payload>" ordering Serialize must produce.
type wireFrame struct {
	ID     int64               `json:"id,omitempty"`
	Src    string              `json:"src,omitempty"`
	Dst    string              `json:"dst,omitempty"`
	Tag    string              `json:"tag,omitempty"`
	Key    string              `json:"key,omitempty"`
	Auth   jsoniter.RawMessage `json:"auth,omitempty"`
	Method string              `json:"method,omitempty"`
	Args   jsoniter.RawMessage `json:"args,omitempty"`
	NR     bool                `json:"nr,omitempty"`
	Result jsoniter.RawMessage `json:"result,omitempty"`
	Error  *Error              `json:"error,omitempty"`
	V      int                 `json:"v,omitempty"`
}

// knownFields lists every field Parse recognizes; a JSON object
// carrying none of them is rejected as ill-formed.
var knownFields = map[string]bool{
	"v": true, "id": true, "src": true, "dst": true, "tag": true,
	"key": true, "auth": true, "nr": true, "method": true, "args": true,
	"result": true, "error": true,
}

// Parse extracts a Frame from a single JSON object. Missing fields take
// their zero values. Parse returns api.ErrIllFormedFrame-wrapping errors
// if data is not a JSON object, or recognizes none of the known fields,
// or the field shape is neither a request nor a response (§3 invariant).
func Parse(data []byte) (*Frame, error) {
	raw := map[string]jsoniter.RawMessage{}
	if err := jsonAPI.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %w", api.ErrIllFormedFrame, err)
	}
	recognized := false
	for k := range raw {
		if knownFields[k] {
			recognized = true
			break
		}
	}
	if !recognized {
		return nil, fmt.Errorf("%w: no recognized field", api.ErrIllFormedFrame)
	}

	var w wireFrame
	if err := jsonAPI.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrIllFormedFrame, err)
	}

	if w.Method == "" && w.ID == 0 {
		return nil, fmt.Errorf("%w: neither request nor response shape", api.ErrIllFormedFrame)
	}

	f := &Frame{
		Version:    w.V,
		ID:         w.ID,
		Src:        w.Src,
		Dst:        w.Dst,
		Tag:        w.Tag,
		Key:        w.Key,
		Auth:       w.Auth,
		Method:     w.Method,
		NoResponse: w.NR,
		Args:       w.Args,
		Result:     w.Result,
		Error:      w.Error,
	}
	return f, nil
}

// Serialize emits a JSON object containing only f's non-empty fields,
// in wire order. defaultSrc is used when f.Src is empty (the engine's
// primary local identity, per §4.1 "src defaults to the first local
// identity"); pass "" to suppress that default.
func Serialize(f *Frame, defaultSrc string) ([]byte, error) {
	src := f.Src
	if src == "" {
		src = defaultSrc
	}
	w := wireFrame{
		V:    f.Version,
		ID:   f.ID,
		Src:  src,
		Dst:  f.Dst,
		Tag:  f.Tag,
		Key:  f.Key,
		Auth: f.Auth,
	}
	switch {
	case f.Method != "":
		w.Method = f.Method
		w.Args = f.Args
		w.NR = f.NoResponse
	case f.Error != nil:
		w.Error = f.Error
	default:
		w.Result = f.Result
	}

	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)
	stream.WriteVal(&w)
	if stream.Error != nil {
		return nil, fmt.Errorf("serialize frame: %w", stream.Error)
	}
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

// NewRequest builds a request Frame.
func NewRequest(id int64, method string, args jsoniter.RawMessage, noResponse bool) *Frame {
	return &Frame{ID: id, Method: method, Args: args, NoResponse: noResponse}
}

// NewResult builds a success response Frame.
func NewResult(id int64, result jsoniter.RawMessage) *Frame {
	return &Frame{ID: id, Result: result}
}

// NewErrorResponse builds an error response Frame.
func NewErrorResponse(id int64, code int, message string) *Frame {
	return &Frame{ID: id, Error: &Error{Code: code, Message: message}}
}
