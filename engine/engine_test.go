package engine_test

import (
	"strconv"
	"testing"

	jsoniter "github.com/json-iterator/go"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/channel"
	"github.com/momentics/hioload-rpc/config"
	"github.com/momentics/hioload-rpc/engine"
	"github.com/momentics/hioload-rpc/pending"
)

// fakeChannel is a minimal api.Channel test double: SendFrame never
// completes on its own — the test drives OnSendComplete explicitly, the
// way a real transport would after its write actually finishes.
type fakeChannel struct {
	sink       api.EventSink
	sent       [][]byte
	persistent bool
	broadcast  bool
	acceptSend bool
	connected  bool
}

func newFakeChannel() *fakeChannel { return &fakeChannel{acceptSend: true} }

func (c *fakeChannel) Bind(sink api.EventSink)     { c.sink = sink }
func (c *fakeChannel) Connect()                    { c.connected = true }
func (c *fakeChannel) Close()                      { c.connected = false }
func (c *fakeChannel) Type() string                { return "fake" }
func (c *fakeChannel) Info() string                { return "fake-channel" }
func (c *fakeChannel) Persistent() bool            { return c.persistent }
func (c *fakeChannel) BroadcastEnabled() bool      { return c.broadcast }
func (c *fakeChannel) SendFrame(data []byte) bool {
	if !c.acceptSend {
		return false
	}
	c.sent = append(c.sent, data)
	return true
}

func (c *fakeChannel) open()             { c.sink.OnOpen() }
func (c *fakeChannel) closed()           { c.sink.OnClosed() }
func (c *fakeChannel) deliver(data []byte) { c.sink.OnFrame(data) }
func (c *fakeChannel) completeSend(ok bool) { c.sink.OnSendComplete(ok) }

type fakeFactory struct {
	ch  *fakeChannel
	err error
}

func (f *fakeFactory) Dial(canonicalURI string, fragmentConfig map[string]string) (api.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

func newTestEngine() *engine.Engine {
	return engine.New(config.Default(), nil, nil)
}

func TestHandlerEchoesArgs(t *testing.T) {
	e := newTestEngine()
	e.AddLocalID("device-1")

	var gotArgs jsoniter.RawMessage
	e.AddHandler("Echo", "", func(req *engine.Request) {
		gotArgs = req.Args()
		req.Respond(req.Args())
	})

	ch := newFakeChannel()
	entry := e.AddChannel("peer", ch)
	ch.open()
	_ = entry

	ch.deliver([]byte(`{"id":1,"src":"peer","dst":"device-1","method":"Echo","args":{"x":1}}`))

	if string(gotArgs) != `{"x":1}` {
		t.Fatalf("handler did not receive expected args, got %s", gotArgs)
	}
	if len(ch.sent) != 1 {
		t.Fatalf("expected one response frame sent, got %d", len(ch.sent))
	}
}

func TestUnknownMethodReturns404(t *testing.T) {
	e := newTestEngine()
	ch := newFakeChannel()
	e.AddChannel("peer", ch)
	ch.open()

	ch.deliver([]byte(`{"id":7,"method":"Nope"}`))

	if len(ch.sent) != 1 {
		t.Fatalf("expected an error response, got %d frames", len(ch.sent))
	}
	if !contains(ch.sent[0], `"code":404`) {
		t.Fatalf("expected 404 error response, got %s", ch.sent[0])
	}
	if !contains(ch.sent[0], `"message":"No handler for Nope"`) {
		t.Fatalf("expected the exact pinned wire text, got %s", ch.sent[0])
	}
}

// With zero local identities registered (a valid configuration — a
// client-only engine that never calls AddLocalID), any frame carrying a
// non-empty dst must still be rejected, not silently accepted.
func TestFrameWithDstRejectedWhenNoLocalIDsRegistered(t *testing.T) {
	e := newTestEngine()
	e.AddHandler("Echo", "", func(req *engine.Request) { req.Respond(req.Args()) })
	ch := newFakeChannel()
	e.AddChannel("peer", ch)
	ch.open()

	ch.deliver([]byte(`{"id":1,"src":"peer","dst":"someone","method":"Echo","args":{}}`))

	if len(ch.sent) != 0 {
		t.Fatalf("expected frame addressed to an unrecognized dst to be discarded, got %d responses", len(ch.sent))
	}
}

func TestCallRefusedWhenEngineDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Enable = false
	e := engine.New(cfg, nil, nil)
	ch := newFakeChannel()
	e.AddChannel("peer", ch)
	ch.open()

	ok := e.Call("Do.Thing", nil, nil, engine.CallOpts{Dst: "peer"})
	if ok {
		t.Fatal("expected Call to refuse when cfg.Enable is false")
	}
	if len(ch.sent) != 0 {
		t.Fatalf("expected nothing sent while disabled, got %d", len(ch.sent))
	}
}

func TestIncomingFramesDroppedWhenEngineDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Enable = false
	e := engine.New(cfg, nil, nil)
	e.AddHandler("Echo", "", func(req *engine.Request) { req.Respond(req.Args()) })
	ch := newFakeChannel()
	e.AddChannel("peer", ch)
	ch.open()

	ch.deliver([]byte(`{"id":1,"src":"peer","method":"Echo","args":{}}`))

	if len(ch.sent) != 0 {
		t.Fatalf("expected incoming frame dropped while disabled, got %d responses", len(ch.sent))
	}
}

func TestRPCListReturnsBareMethodArray(t *testing.T) {
	e := newTestEngine()
	engine.RegisterBuiltins(e)
	e.AddHandler("Echo", "", func(req *engine.Request) { req.Respond(req.Args()) })
	ch := newFakeChannel()
	e.AddChannel("peer", ch)
	ch.open()

	ch.deliver([]byte(`{"id":1,"method":"RPC.List"}`))

	if len(ch.sent) != 1 {
		t.Fatalf("expected one response, got %d", len(ch.sent))
	}
	var resp struct {
		Result []string `json:"result"`
	}
	if err := jsoniter.Unmarshal(ch.sent[0], &resp); err != nil {
		t.Fatalf("failed to parse RPC.List response: %v", err)
	}
	if len(resp.Result) != 4 {
		t.Fatalf("expected the four registered methods (three built-ins plus Echo), got %v", resp.Result)
	}
}

func TestRPCDescribeUsesNameAndArgsFmtFields(t *testing.T) {
	e := newTestEngine()
	engine.RegisterBuiltins(e)
	e.AddHandler("Echo", `{"x":"int"}`, func(req *engine.Request) { req.Respond(req.Args()) })
	ch := newFakeChannel()
	e.AddChannel("peer", ch)
	ch.open()

	ch.deliver([]byte(`{"id":1,"method":"RPC.Describe","args":{"name":"Echo"}}`))

	if len(ch.sent) != 1 {
		t.Fatalf("expected one response, got %d", len(ch.sent))
	}
	var resp struct {
		Result struct {
			Name    string `json:"name"`
			ArgsFmt string `json:"args_fmt"`
		} `json:"result"`
	}
	if err := jsoniter.Unmarshal(ch.sent[0], &resp); err != nil {
		t.Fatalf("failed to parse RPC.Describe response: %v", err)
	}
	if resp.Result.Name != "Echo" || resp.Result.ArgsFmt != `{"x":"int"}` {
		t.Fatalf("unexpected RPC.Describe response: %s", ch.sent[0])
	}
}

func TestCallQueuesWhileDisconnectedAndFlushesOnOpen(t *testing.T) {
	e := newTestEngine()
	ch := newFakeChannel()
	e.AddChannel("peer", ch)
	// not yet open: SendFrame would accept, but trySend gates on IsOpen

	ok := e.Call("Do.Thing", jsoniter.RawMessage(`{}`), nil, engine.CallOpts{Dst: "peer", NoQueue: false})
	if !ok {
		t.Fatal("expected Call to succeed by queuing")
	}
	if len(ch.sent) != 0 {
		t.Fatalf("expected nothing sent before channel opens, got %d", len(ch.sent))
	}
	if e.QueueLen() != 1 {
		t.Fatalf("expected 1 queued frame, got %d", e.QueueLen())
	}

	ch.open()
	if len(ch.sent) != 1 {
		t.Fatalf("expected queued frame flushed on open, got %d sent", len(ch.sent))
	}
	if e.QueueLen() != 0 {
		t.Fatalf("expected queue drained, got %d", e.QueueLen())
	}
}

func TestCallNoQueueFailsFastWhenNotOpen(t *testing.T) {
	e := newTestEngine()
	ch := newFakeChannel()
	e.AddChannel("peer", ch)

	ok := e.Call("Do.Thing", jsoniter.RawMessage(`{}`), nil, engine.CallOpts{Dst: "peer", NoQueue: true})
	if ok {
		t.Fatal("expected Call with NoQueue to fail when channel is not open")
	}
}

func TestQueueOverflowRejectsEnqueue(t *testing.T) {
	cfg := config.Default()
	cfg.MaxQueueLength = 1
	e := engine.New(cfg, nil, nil)
	ch := newFakeChannel()
	e.AddChannel("peer", ch)

	ok1 := e.Call("A", nil, nil, engine.CallOpts{Dst: "peer"})
	ok2 := e.Call("B", nil, nil, engine.CallOpts{Dst: "peer"})
	if !ok1 {
		t.Fatal("expected first call to queue successfully")
	}
	if ok2 {
		t.Fatal("expected second call to be rejected by a full queue")
	}
}

func TestResponseCorrelationAndDuplicateDiscard(t *testing.T) {
	e := newTestEngine()
	ch := newFakeChannel()
	e.AddChannel("peer", ch)
	ch.open()

	calls := 0
	var lastResult jsoniter.RawMessage
	cb := pending.Callback(func(result jsoniter.RawMessage, errCode int, errMsg string, info pending.ResponseInfo) {
		calls++
		lastResult = result
	})

	ok := e.Call("Query", nil, cb, engine.CallOpts{Dst: "peer"})
	if !ok {
		t.Fatal("expected call to dispatch")
	}
	if len(ch.sent) != 1 {
		t.Fatalf("expected request frame sent, got %d", len(ch.sent))
	}
	ch.completeSend(true)

	// Extract the id the engine assigned by round-tripping through the
	// frame parser would require importing frame; instead just respond
	// with a guessed correlation path isn't possible — use PendingCount
	// to confirm the table holds exactly one outstanding call, then
	// answer it through the public channel surface with a response
	// frame referencing the same id the engine used. Since ids are
	// opaque here, read it back out of the serialized request.
	id := extractID(t, ch.sent[0])

	ch.deliver([]byte(`{"id":` + id + `,"result":{"ok":true}}`))
	if calls != 1 {
		t.Fatalf("expected callback invoked once, got %d", calls)
	}
	if string(lastResult) != `{"ok":true}` {
		t.Fatalf("unexpected result: %s", lastResult)
	}

	// A second response with the same id is a duplicate and must be
	// silently discarded, not redelivered.
	ch.deliver([]byte(`{"id":` + id + `,"result":{"ok":false}}`))
	if calls != 1 {
		t.Fatalf("expected duplicate response to be discarded, calls=%d", calls)
	}
	if e.PendingCount() != 0 {
		t.Fatalf("expected pending table drained, got %d", e.PendingCount())
	}
}

func TestOnDemandChannelCreationViaFactory(t *testing.T) {
	dialed := newFakeChannel()
	e := engine.New(config.Default(), &fakeFactory{ch: dialed}, nil)

	ok := e.Call("Ping", nil, nil, engine.CallOpts{Dst: "ws://example.invalid/rpc"})
	if !ok {
		t.Fatal("expected on-demand dial to succeed and queue the frame")
	}
	if !dialed.connected {
		t.Fatal("expected factory-dialed channel to receive Connect()")
	}

	dialed.open()
	if len(dialed.sent) != 1 {
		t.Fatalf("expected queued frame flushed once the dialed channel opens, got %d", len(dialed.sent))
	}
	if contains(dialed.sent[0], `"dst"`) {
		t.Fatalf("expected dst stripped on a freshly dialed point-to-point channel, got %s", dialed.sent[0])
	}
}

func TestChannelClosedPurgesQueuedFramesForNonPersistentChannel(t *testing.T) {
	e := newTestEngine()
	ch := newFakeChannel()
	ch.persistent = false
	e.AddChannel("peer", ch)

	e.Call("A", nil, nil, engine.CallOpts{Dst: "peer"})
	if e.QueueLen() != 1 {
		t.Fatalf("expected 1 queued frame, got %d", e.QueueLen())
	}

	ch.closed()
	if e.QueueLen() != 0 {
		t.Fatalf("expected queued frame purged on non-persistent close, got %d", e.QueueLen())
	}
}

func contains(data []byte, needle string) bool {
	return indexOf(string(data), needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func extractID(t *testing.T, data []byte) string {
	t.Helper()
	var w struct {
		ID int64 `json:"id"`
	}
	if err := jsoniter.Unmarshal(data, &w); err != nil {
		t.Fatalf("failed to extract id from %s: %v", data, err)
	}
	if w.ID == 0 {
		t.Fatalf("expected non-zero id in %s", data)
	}
	return strconv.FormatInt(w.ID, 10)
}

var _ channel.Factory = (*fakeFactory)(nil)
