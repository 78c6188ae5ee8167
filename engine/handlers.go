// File: engine/handlers.go
// Author: momentics <momentics@gmail.com>
//
// RegisterBuiltins installs the three reserved RPC.* methods (§4.7).
// They are opt-in, not automatic, so a host embedding Engine in a
// context where they'd be inappropriate (e.g. a pure client that never
// answers requests) can simply not call this.

package engine

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// RegisterBuiltins adds RPC.List, RPC.Describe, and RPC.Ping.
// Registration follows the same first-registration-wins rule as any
// other AddHandler call, so a host that already registered one of
// these names keeps its own handler.
func RegisterBuiltins(e *Engine) {
	e.AddHandler("RPC.List", "", handleRPCList)
	e.AddHandler("RPC.Describe", `{"name":"string"}`, handleRPCDescribe)
	e.AddHandler("RPC.Ping", "", handleRPCPing)
}

func handleRPCList(req *Request) {
	e := req.eng
	methods := make([]string, 0, len(e.handlers))
	for m := range e.handlers {
		methods = append(methods, m)
	}
	e.recordDispatch("RPC.List")
	req.Respond(mustMarshal(methods))
}

func handleRPCDescribe(req *Request) {
	var args struct {
		Name string `json:"name"`
	}
	if len(req.Args()) > 0 {
		if err := jsoniter.Unmarshal(req.Args(), &args); err != nil {
			req.RespondError(400, "bad args: %v", err)
			return
		}
	}
	e := req.eng
	reg, found := e.handlers[args.Name]
	if !found {
		req.RespondError(404, "unknown method %q", args.Name)
		return
	}
	e.recordDispatch("RPC.Describe")
	req.Respond(mustMarshal(map[string]any{
		"name":     args.Name,
		"args_fmt": reg.argsFmt,
	}))
}

func handleRPCPing(req *Request) {
	req.eng.recordDispatch("RPC.Ping")
	req.Respond(mustMarshal(map[string]any{
		"channel_type": req.ChannelType(),
		"channel_info": req.ChannelInfo(),
	}))
}

func mustMarshal(v any) jsoniter.RawMessage {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		// Only reachable if a built-in handler's own result shape is
		// unmarshalable, which the shapes above never are.
		panic(fmt.Sprintf("engine: built-in handler result cannot marshal: %v", err))
	}
	return data
}
