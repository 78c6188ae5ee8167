// File: channel/registry.go
// Package channel: the registry owns channel entries and maps
// destinations to channels, creating on-demand outbound channels for
// URI-style destinations it has never seen.
// Author: momentics <momentics@gmail.com>

package channel

import (
	"fmt"

	"github.com/momentics/hioload-rpc/api"
)

// DefaultRoute is the sentinel destination matched when no entry's dst
// equals the requested destination and the destination does not parse
// as a URI — "whoever answers the default route". A URI whose scheme is
// not dialable is an error, not a default-route match.
const DefaultRoute = ""

// Factory creates a transport-specific outbound channel for an
// on-demand destination. Concrete transports (e.g. wschannel) implement
// this; the registry stays transport-agnostic. The returned channel
// must not yet be Bind()-ed or Connect()-ed — Resolve does both once
// the entry exists.
type Factory interface {
	Dial(canonicalURI string, fragmentConfig map[string]string) (api.Channel, error)
}

// SinkFactory builds the one-way event callback an engine hands a newly
// registered entry's channel (§9 back-reference note).
type SinkFactory func(e *Entry) api.EventSink

// Registry owns all channel entries. It is not internally synchronized:
// the rpc engine is single-threaded cooperative and is its only caller
// (§5). Iteration snapshots the entry slice before invoking anything
// that might mutate the registry, so removal-during-iteration is safe.
type Registry struct {
	entries []*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a pre-built channel entry. dst may be empty ("default
// route").
func (r *Registry) Add(e *Entry) {
	r.entries = append(r.entries, e)
}

// Remove deletes e from the registry, if present.
func (r *Registry) Remove(e *Entry) {
	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// All returns a snapshot slice of every registered entry, safe to
// range over even if a callback mutates the registry.
func (r *Registry) All() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Find returns the entry whose Dst is byte-or-canonical-URI-equal to
// dst (registry policy step 1), or nil.
func (r *Registry) Find(dst string) *Entry {
	for _, e := range r.All() {
		if DestinationsEqual(e.Dst, dst) {
			return e
		}
	}
	return nil
}

// Resolve implements the registry's three-step destination resolution
// policy (§4.3):
//  1. an entry whose dst matches by byte or canonical-URI equality;
//  2. else, for a ws/wss/http/https URI, an on-demand outbound channel,
//     dialed via factory, registered under the canonicalized URI;
//  3. else, the default-route entry, or nil if none is registered.
//
// Resolve returns (nil, false, nil) — not an error — when no route
// exists. newSink builds the event callback for a freshly
// on-demand-created entry (see SinkFactory); it is not called for an
// existing match. created is true only when Resolve itself dialed a
// new outbound channel this call — callers use this to strip the
// original dst from the frame before sending, since a freshly dialed
// channel is now a point-to-point link (§4.3 policy 2).
func (r *Registry) Resolve(dst string, factory Factory, newSink SinkFactory) (entry *Entry, created bool, err error) {
	if e := r.Find(dst); e != nil {
		return e, false, nil
	}

	if parsed, ok := ParseDestination(dst); ok {
		if !IsOutboundScheme(parsed.Scheme) {
			return nil, false, fmt.Errorf("%w: %s", api.ErrUnsupportedScheme, parsed.Scheme)
		}
		if factory == nil {
			return nil, false, fmt.Errorf("%w: no outbound channel factory configured", api.ErrNoRoute)
		}
		canonical := parsed.Canonical()
		// A prior on-demand channel may already be registered under
		// the canonical form even though the raw dst differed only in
		// fragment or query ordering; re-check before dialing again.
		if e := r.Find(canonical); e != nil {
			return e, false, nil
		}
		ch, err := factory.Dial(canonical, FragmentConfig(parsed.Fragment))
		if err != nil {
			return nil, false, err
		}
		e := NewEntry(canonical, ch)
		ch.Bind(newSink(e))
		r.Add(e)
		ch.Connect()
		return e, true, nil
	}

	return r.Find(DefaultRoute), false, nil
}
