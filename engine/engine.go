// File: engine/engine.go
// Package engine implements the rpc multiplexer: the component tying
// together the frame codec, channel registry, pending-request table,
// and outbound queue into dispatch, handler lookup, observer
// notification, and the channel-event state machine (§4.6).
// Author: momentics <momentics@gmail.com>
//
// The engine's algorithms (registry resolution, queueing, dispatch) are
// the single-threaded cooperative design §5 describes. In practice a
// host wires transports — wschannel's per-connection read loop among
// them — that deliver events from their own goroutines, so Engine
// guards its owned state (registry, handlers, pending table, queue)
// with a single mutex: every public Engine method and every event
// delivered through engineSink takes it for the duration of the call,
// mirroring the mutex-guarded style the teacher's highlevel.Server
// itself uses. Internal helpers (dispatch, flushQueue,
// handleIncomingFrame and the rest of the handle* chain) assume the
// caller already holds it and never lock again.
//
// One consequence: a handler or pending-response callback runs with
// the lock held, so it must not call back into a locking Engine method
// (Call, AddChannel, Connect, Disconnect, ...) synchronously from
// within itself — doing so self-deadlocks. A handler that needs to
// relay or forward a call should spawn a goroutine to do so.

package engine

import (
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/channel"
	"github.com/momentics/hioload-rpc/config"
	"github.com/momentics/hioload-rpc/control"
	"github.com/momentics/hioload-rpc/pending"
	"github.com/momentics/hioload-rpc/queue"
)

// CallOpts mirrors the recognized option fields of call() (§4.6).
// Unrecognized fields passed by a caller building its own options type
// are simply not read.
type CallOpts struct {
	Dst       string
	Src       string
	Tag       string
	Key       string
	Broadcast bool
	NoQueue   bool
}

// HandlerFunc processes a matched request. It owns req until it calls
// exactly one of req.Respond / req.RespondError.
type HandlerFunc func(req *Request)

// PrehandlerFunc runs before every matched handler. Returning false
// stops dispatch (the prehandler has either already responded or chosen
// silently to drop the request).
type PrehandlerFunc func(req *Request) bool

// ObserverFunc is notified of channel-open and channel-closed events,
// carrying the entry's destination (possibly "" if never learned).
type ObserverFunc func(dst string, opened bool)

// ObserverToken identifies a registered observer for RemoveObserver.
type ObserverToken int

type handlerReg struct {
	cb      HandlerFunc
	argsFmt string
}

type observerReg struct {
	token ObserverToken
	cb    ObserverFunc
}

// Engine is the rpc multiplexer. Construct with New; it owns all
// channel, handler, pending-request, and queue state exclusively (§3).
type Engine struct {
	cfg *config.Config
	log *logrus.Entry

	// mu guards every field below, serializing concurrent websocket
	// read-loop goroutines against each other and against host calls
	// into the engine's public methods. See the package comment above
	// for the reentrancy constraint this implies for handler code.
	mu sync.Mutex

	registry *channel.Registry
	pending  *pending.Table
	outq     *queue.Queue
	factory  channel.Factory

	handlers   map[string]handlerReg
	prehandler PrehandlerFunc

	localIDs    []string
	observers   []observerReg
	nextObsTok  ObserverToken

	cfgStore *control.ConfigStore
	metrics  *control.MetricsRegistry
	debug    *control.DebugProbes
}

// New constructs an Engine. factory may be nil if the host never
// addresses on-demand (URI-style) destinations. log may be nil, in
// which case logrus.StandardLogger() is used.
func New(cfg *config.Config, factory channel.Factory, log *logrus.Entry) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	e := &Engine{
		cfg:      cfg,
		log:      log,
		registry: channel.NewRegistry(),
		pending:  pending.NewTable(time.Now().UnixNano()),
		outq:     queue.New(cfg.MaxQueueLength),
		factory:  factory,
		handlers: make(map[string]handlerReg),
		cfgStore: control.NewConfigStore(),
		metrics:  control.NewMetricsRegistry(),
		debug:    control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(e.debug)
	e.debug.RegisterProbe("channels", func() any { return len(e.registry.All()) })
	e.debug.RegisterProbe("pending_requests", func() any { return e.pending.Len() })
	return e
}

// AddLocalID appends id to the local-identity set (§3): a frame whose
// dst names id will be accepted by IsLocalID.
func (e *Engine) AddLocalID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.localIDs = append(e.localIDs, id)
}

// IsLocalID reports whether dst is a known local identity.
func (e *Engine) IsLocalID(dst string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isLocalIDLocked(dst)
}

func (e *Engine) isLocalIDLocked(dst string) bool {
	for _, id := range e.localIDs {
		if id == dst {
			return true
		}
	}
	return false
}

// primaryLocalID is the default "src" for outgoing frames that did not
// specify one (§4.1).
func (e *Engine) primaryLocalID() string {
	if len(e.localIDs) == 0 {
		return ""
	}
	return e.localIDs[0]
}

// AddHandler registers a method handler. First registration wins on
// duplicate method names (§3 "handler registration").
func (e *Engine) AddHandler(method, argsFmt string, cb HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.handlers[method]; exists {
		return
	}
	e.handlers[method] = handlerReg{cb: cb, argsFmt: argsFmt}
}

// SetPrehandler installs (or clears, with nil) the single prehandler.
func (e *Engine) SetPrehandler(cb PrehandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prehandler = cb
}

// AddObserver registers a channel-lifecycle observer and returns a
// token usable with RemoveObserver. Must not be called from within an
// observer or handler callback that is itself mid-fire — the engine
// lock is held for the duration of that callback (see package comment).
func (e *Engine) AddObserver(cb ObserverFunc) ObserverToken {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextObsTok++
	tok := e.nextObsTok
	e.observers = append(e.observers, observerReg{token: tok, cb: cb})
	return tok
}

// RemoveObserver unregisters the observer identified by tok. Must not
// be called from within an observer or handler callback that is itself
// mid-fire, for the same reason as AddObserver.
func (e *Engine) RemoveObserver(tok ObserverToken) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, o := range e.observers {
		if o.token == tok {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

func (e *Engine) notifyObservers(dst string, opened bool) {
	snapshot := make([]observerReg, len(e.observers))
	copy(snapshot, e.observers)
	for _, o := range snapshot {
		o.cb(dst, opened)
	}
}

// AddChannel registers a pre-built channel under dst (possibly "" for
// the default route), binds event delivery, and returns the new entry.
func (e *Engine) AddChannel(dst string, ch api.Channel) *channel.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry := channel.NewEntry(dst, ch)
	ch.Bind(e.sinkFor(entry))
	e.registry.Add(entry)
	return entry
}

// Connect calls Connect on every registered channel (snapshot
// iteration: re-entrant registry mutation during the loop is safe).
// Channel.Connect must not block (api.Channel), so this runs with the
// lock held.
func (e *Engine) Connect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range e.registry.All() {
		entry.Ch.Connect()
	}
}

// Disconnect calls Close on every registered channel.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range e.registry.All() {
		entry.Ch.Close()
	}
}

// PendingCount returns the number of unanswered outgoing requests —
// exposed for tests and diagnostics; the core does not reap these on
// its own (§9 open question).
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending.Len()
}

// QueueLen returns the current outbound queue depth.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outq.Len()
}

// RawJSON is the request/result payload type, re-exported so callers
// need not import json-iterator directly.
type RawJSON = jsoniter.RawMessage
