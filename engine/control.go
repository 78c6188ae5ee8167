// File: engine/control.go
// Author: momentics <momentics@gmail.com>
//
// Engine implements api.Control over the teacher's control package:
// ConfigStore for live configuration, MetricsRegistry for Stats, and
// DebugProbes for RegisterDebugProbe — generalized from the teacher's
// highlevel.Server, which wired the same three the same way.

package engine

import (
	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/control"
)

var _ api.Control = (*Engine)(nil)

// GetConfig returns a snapshot of live configuration settings.
func (e *Engine) GetConfig() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfgStore.GetSnapshot()
}

// SetConfig merges newCfg into live configuration and dispatches
// reload listeners. It always returns nil; the error return exists to
// satisfy api.Control. Listeners take no arguments and return nothing,
// so they cannot reject a change.
func (e *Engine) SetConfig(cfg map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfgStore.SetConfig(cfg)
	// ConfigStore.OnReload covers listeners scoped to this engine
	// instance; TriggerHotReload additionally notifies any host-wide
	// hooks registered directly against the control package (e.g. a
	// process-level log-level watcher shared across several engines).
	control.TriggerHotReload()
	return nil
}

// Stats returns aggregated runtime metrics plus the engine's own
// dispatch counters (queue depth, pending-request count, channel
// count).
func (e *Engine) Stats() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.metrics.GetSnapshot()
	out["queue_length"] = e.outq.Len()
	out["pending_requests"] = e.pending.Len()
	out["channels"] = len(e.registry.All())
	return out
}

// OnReload registers a hot-reload listener.
func (e *Engine) OnReload(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfgStore.OnReload(fn)
}

// RegisterDebugProbe registers a named debug probe, surfaced through
// DebugDump.
func (e *Engine) RegisterDebugProbe(name string, fn func() any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debug.RegisterProbe(name, fn)
}

// DebugDump returns the output of every registered debug probe.
func (e *Engine) DebugDump() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debug.DumpState()
}

// recordDispatch updates the engine's own dispatch counters in
// MetricsRegistry — called from the built-in RPC.* handlers, which run
// with the engine lock already held (see engineSink), so this must not
// lock again.
func (e *Engine) recordDispatch(method string) {
	key := "dispatch." + method
	count, _ := e.metrics.GetSnapshot()[key].(int)
	e.metrics.Set(key, count+1)
}
