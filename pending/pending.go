// File: pending/pending.go
// Package pending implements the pending-request table: correlation
// between outgoing request IDs and the callbacks awaiting their
// responses.
// Author: momentics <momentics@gmail.com>
//
// ID generation follows §4.4/§9: each new ID is the previous ID plus a
// uniformly-random positive delta, the same additive-random shape the
// prior mg_rpc Go port used (other_examples/.../mgrpc2.go:
// `nextID: int64(r.Int31())`, `atomic.AddInt64(&d.nextID, 1)`), except
// the delta here is randomized rather than fixed at one so that IDs
// observed on the wire do not trivially reveal call ordering.

package pending

import (
	"math/rand"

	jsoniter "github.com/json-iterator/go"
)

// ResponseInfo carries context about the channel a response arrived on.
type ResponseInfo struct {
	ChannelType string
}

// Callback is invoked at most once, when a matching response arrives.
type Callback func(result jsoniter.RawMessage, errCode int, errMsg string, info ResponseInfo)

type entry struct {
	cb   Callback
	opts any
}

// Table correlates outgoing request IDs with response callbacks. Not
// internally synchronized — the rpc engine is its sole, single-threaded
// caller.
type Table struct {
	rng     *rand.Rand
	lastID  int64
	entries map[int64]entry
}

// NewTable creates an empty pending-request table.
func NewTable(seed int64) *Table {
	return &Table{
		rng:     rand.New(rand.NewSource(seed)),
		entries: make(map[int64]entry),
	}
}

// NextID generates a fresh, non-zero request ID: the previous ID plus a
// uniformly-random positive delta in [1, 1<<20]. Uniqueness within the
// process is what §8's "ID uniqueness-per-peer" invariant requires;
// this is sufficient and, unlike the original's seed-and-mix, does not
// depend on the quality of the process-wide RNG seed.
func (t *Table) NextID() int64 {
	delta := t.rng.Int63n(1<<20) + 1
	t.lastID += delta
	if t.lastID == 0 {
		t.lastID++
	}
	return t.lastID
}

// Register inserts a pending-request entry for id. Called only when the
// engine has committed to sending (or enqueueing) the request.
func (t *Table) Register(id int64, cb Callback, opts any) {
	t.entries[id] = entry{cb: cb, opts: opts}
}

// Take removes and returns the callback registered for id. ok is false
// for unknown or already-consumed IDs, which the engine silently
// discards (§4.6.2, §7 "duplicate/late response").
func (t *Table) Take(id int64) (cb Callback, opts any, ok bool) {
	e, found := t.entries[id]
	if !found {
		return nil, nil, false
	}
	delete(t.entries, id)
	return e.cb, e.opts, true
}

// Len returns the number of unanswered pending requests.
func (t *Table) Len() int {
	return len(t.entries)
}
