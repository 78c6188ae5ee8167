// File: api/handler.go
// Package api defines the shapes shared between the rpc engine and the
// concrete channel transports it drives.
// Author: momentics <momentics@gmail.com>

package api

// Channel is the capability contract every transport (websocket, HTTP,
// MQTT, serial, ...) implements so the engine can own and drive it
// without knowing its concrete type.
type Channel interface {
	// Bind wires event delivery. Called exactly once, by whichever
	// registry entry now owns this channel, before Connect. The
	// channel must hold sink and invoke it for every subsequent
	// lifecycle event; this is the one-way callback link back to the
	// engine (no owning back-reference).
	Bind(sink EventSink)

	// Connect idempotently requests transport establishment or
	// re-establishment. Must not block.
	Connect()

	// Close requests transport teardown. Must not block.
	Close()

	// SendFrame attempts to hand off bytes to the transport. Returns
	// whether the channel accepted responsibility for the bytes; if
	// true, the channel must eventually report completion via the
	// EventSink it was registered with.
	SendFrame(data []byte) bool

	// Type returns a short diagnostic transport type, e.g. "ws".
	Type() string

	// Info returns transport-specific diagnostics, or "" if none.
	Info() string

	// Persistent reports whether this channel's entry should survive
	// a CLOSED event for later reconnection, rather than be destroyed.
	Persistent() bool

	// BroadcastEnabled reports eligibility for broadcast sends.
	BroadcastEnabled() bool
}

// EventSink is the one-way callback surface a Channel is handed on
// registration so it can report lifecycle events back to its owning
// engine without holding an owning reference to it (back-references
// channel<->engine are a callback, not a bidirectional pointer).
type EventSink interface {
	OnOpen()
	OnFrame(data []byte)
	OnSendComplete(ok bool)
	OnClosed()
}
