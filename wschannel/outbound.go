// File: wschannel/outbound.go
// Author: momentics <momentics@gmail.com>
//
// OutboundChannel implements api.Channel for an on-demand, URI-addressed
// destination (§4.3 policy 2): dialed lazily on Connect, retried on a
// configurable backoff, and automatically redialed after an unexpected
// drop — it always reports Persistent() true, so the registry keeps its
// entry (and anything queued for it) across a reconnect cycle.

package wschannel

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-rpc/api"
	"github.com/momentics/hioload-rpc/channel"
	"github.com/momentics/hioload-rpc/config"
)

// OutboundChannel dials url lazily and reconnects on failure.
type OutboundChannel struct {
	url string
	cfg config.WS
	log *logrus.Entry

	mu         sync.Mutex
	sink       api.EventSink
	conn       *websocket.Conn
	connecting bool
	closed     bool
}

func newOutboundChannel(url string, cfg config.WS, log *logrus.Entry) *OutboundChannel {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &OutboundChannel{url: url, cfg: cfg, log: log}
}

func (o *OutboundChannel) Bind(sink api.EventSink) { o.sink = sink }

func (o *OutboundChannel) Connect() {
	o.mu.Lock()
	if o.connecting || o.conn != nil || o.closed {
		o.mu.Unlock()
		return
	}
	o.connecting = true
	o.mu.Unlock()
	go o.dialLoop()
}

func (o *OutboundChannel) Close() {
	o.mu.Lock()
	o.closed = true
	conn := o.conn
	o.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (o *OutboundChannel) SendFrame(data []byte) bool {
	o.mu.Lock()
	conn := o.conn
	o.mu.Unlock()
	if conn == nil {
		return false
	}
	go func() {
		err := conn.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			o.log.WithError(err).WithField("dst", o.url).Warn("websocket write failed")
		}
		o.sink.OnSendComplete(err == nil)
	}()
	return true
}

func (o *OutboundChannel) Type() string           { return "ws" }
func (o *OutboundChannel) Info() string           { return o.url }
func (o *OutboundChannel) Persistent() bool       { return true }
func (o *OutboundChannel) BroadcastEnabled() bool { return false }

func (o *OutboundChannel) dialLoop() {
	backoff := o.cfg.ReconnectIntervalMin
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBackoff := o.cfg.ReconnectIntervalMax
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	for {
		o.mu.Lock()
		closed := o.closed
		o.mu.Unlock()
		if closed {
			return
		}

		dialer := *websocket.DefaultDialer
		if tlsCfg, err := buildTLSConfig(o.cfg); err != nil {
			o.log.WithError(err).WithField("dst", o.url).Error("invalid outbound tls configuration, giving up")
			return
		} else if tlsCfg != nil {
			dialer.TLSClientConfig = tlsCfg
		}

		conn, _, err := dialer.Dial(o.url, nil)
		if err != nil {
			o.log.WithError(err).WithField("dst", o.url).Warn("outbound websocket dial failed, retrying")
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		o.mu.Lock()
		o.conn = conn
		o.connecting = false
		o.mu.Unlock()
		o.sink.OnOpen()
		o.readLoop(conn)

		o.mu.Lock()
		closed = o.closed
		o.conn = nil
		o.mu.Unlock()
		if closed {
			return
		}
		backoff = o.cfg.ReconnectIntervalMin
		if backoff <= 0 {
			backoff = time.Second
		}
	}
}

func (o *OutboundChannel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			o.log.WithError(err).WithField("dst", o.url).Debug("outbound websocket connection dropped")
			o.sink.OnClosed()
			return
		}
		o.sink.OnFrame(data)
	}
}

var _ api.Channel = (*OutboundChannel)(nil)
var _ channel.Factory = (*Factory)(nil)
