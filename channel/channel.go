// File: channel/channel.go
// Package channel implements the channel entry and registry that the
// rpc engine drives: a registry of long-lived channels with independent
// lifecycles, destination resolution, and on-demand outbound creation.
// Author: momentics <momentics@gmail.com>
//
// Grounded on the teacher's connection-bookkeeping style
// (highlevel.Server tracking `connections map[*Conn]bool` under a
// mutex) generalized to the engine's single-threaded cooperative model,
// where no internal locking is required (the engine is the sole caller).

package channel

import "github.com/momentics/hioload-rpc/api"

// Entry is a registry-owned record pairing a transport with a
// destination and its open/busy lifecycle flags.
type Entry struct {
	Dst    string
	Ch     api.Channel
	IsOpen bool
	IsBusy bool
}

// NewEntry wraps ch for registration under the given (possibly empty)
// destination.
func NewEntry(dst string, ch api.Channel) *Entry {
	return &Entry{Dst: dst, Ch: ch}
}
