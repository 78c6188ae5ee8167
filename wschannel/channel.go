// File: wschannel/channel.go
// Package wschannel implements api.Channel over a websocket connection
// (github.com/gorilla/websocket — the library the teacher's own
// integration tests dial against, tests/go.mod: "for integration
// tests"), for both server-accepted (inbound) and on-demand dialed
// (outbound) destinations.
// Author: momentics <momentics@gmail.com>
//
// One goroutine per channel reads frames off the wire and delivers
// them through the bound EventSink; writes run one at a time, gated by
// the engine's own busy flag on the entry (api.Channel.SendFrame must
// not be called again until the previous call's OnSendComplete fires),
// so gorilla's "one concurrent writer" requirement is satisfied without
// an additional lock here.

package wschannel

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-rpc/api"
)

// Channel wraps an already-established *websocket.Conn — used for
// server-accepted inbound connections, where the handshake is already
// complete by the time a Channel exists. See OutboundChannel for
// on-demand dialed destinations, whose connection is established
// lazily and may be retried.
type Channel struct {
	conn       *websocket.Conn
	log        *logrus.Entry
	remote     string
	persistent bool
	broadcast  bool

	mu      sync.Mutex
	sink    api.EventSink
	started bool
	closed  bool
}

// NewChannel wraps conn. remote is a short diagnostic string (e.g. the
// peer address) surfaced through Info(). persistent and broadcast set
// the corresponding api.Channel capability flags.
func NewChannel(conn *websocket.Conn, remote string, persistent, broadcast bool, log *logrus.Entry) *Channel {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Channel{conn: conn, remote: remote, persistent: persistent, broadcast: broadcast, log: log}
}

func (c *Channel) Bind(sink api.EventSink) { c.sink = sink }

// Connect starts the read loop and reports the channel open. Connect is
// idempotent: a second call on an already-started channel is a no-op,
// since the wrapped connection is already established.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.readLoop()
	c.sink.OnOpen()
}

func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.conn.Close()
}

// SendFrame hands data to a dedicated write goroutine; gorilla permits
// exactly one concurrent writer, which the engine's per-entry busy flag
// already enforces by never calling SendFrame again before the prior
// call's OnSendComplete.
func (c *Channel) SendFrame(data []byte) bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	go func() {
		err := c.conn.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			c.log.WithError(err).WithField("remote", c.remote).Warn("websocket write failed")
		}
		c.sink.OnSendComplete(err == nil)
	}()
	return true
}

func (c *Channel) Type() string           { return "ws" }
func (c *Channel) Info() string           { return c.remote }
func (c *Channel) Persistent() bool       { return c.persistent }
func (c *Channel) BroadcastEnabled() bool { return c.broadcast }

func (c *Channel) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			alreadyClosed := c.closed
			c.closed = true
			c.mu.Unlock()
			if !alreadyClosed {
				c.log.WithError(err).WithField("remote", c.remote).Debug("websocket connection closed")
			}
			c.sink.OnClosed()
			return
		}
		c.sink.OnFrame(data)
	}
}

var _ api.Channel = (*Channel)(nil)
