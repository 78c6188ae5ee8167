// File: wschannel/server.go
// Author: momentics <momentics@gmail.com>
//
// Server is an http.Handler that upgrades incoming requests to
// websocket connections and hands each accepted Channel to onAccept —
// typically engine.Engine.AddChannel, invoked by the host, not by this
// package, keeping wschannel ignorant of engine.Engine (§9 one-way
// callback design carried up to the transport boundary too).

package wschannel

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-rpc/api"
)

// AcceptFunc is invoked once per accepted inbound connection.
type AcceptFunc func(ch api.Channel)

// Server upgrades HTTP requests to websocket connections.
type Server struct {
	upgrader   websocket.Upgrader
	log        *logrus.Entry
	onAccept   AcceptFunc
	broadcast  bool
}

// NewServer builds a Server. broadcast sets whether accepted channels
// are eligible for broadcast sends (§4.6 broadcast policy); log may be
// nil.
func NewServer(onAccept AcceptFunc, broadcast bool, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The rpc multiplexer is not itself an HTTP framework;
			// origin policy is a host concern (§9 — access control
			// belongs above this transport layer).
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:       log,
		onAccept:  onAccept,
		broadcast: broadcast,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	ch := NewChannel(conn, r.RemoteAddr, false, s.broadcast, s.log)
	s.onAccept(ch)
}
