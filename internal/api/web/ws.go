package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/metrics"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second
	// pingPeriod sends pings before pongWait expires.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize limits what clients may send; they only send pongs.
	maxMessageSize = 512
)

// stateStream pushes every snapshot to websocket subscribers.
type stateStream struct {
	// service provides the snapshots.
	service Service
	// upgrader upgrades HTTP connections; the default origin check applies.
	upgrader websocket.Upgrader

	// mu protects clients.
	mu sync.Mutex
	// clients is the number of connected subscribers.
	clients int
}

// newStateStream creates the websocket endpoint.
func newStateStream(service Service) *stateStream {
	return &stateStream{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// track adjusts the subscriber count.
func (s *stateStream) track(delta int) {
	s.mu.Lock()
	s.clients += delta
	n := s.clients
	s.mu.Unlock()

	metrics.SetWebsocketClients(n)
}

// ServeHTTP upgrades the connection and streams snapshots until the
// client leaves or the service closes the subscription.
func (s *stateStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(ctx, "WebSocket upgrade failed", "error", err)
		return
	}

	updates, unsubscribe := s.service.Subscribe()

	s.track(1)
	logger.DebugKV(ctx, "State subscriber connected", "remote", r.RemoteAddr)

	defer func() {
		unsubscribe()
		_ = conn.Close()
		s.track(-1)
		logger.DebugKV(ctx, "State subscriber disconnected", "remote", r.RemoteAddr)
	}()

	done := make(chan struct{})

	go readPump(conn, done)

	writePump(conn, updates, done)
}

// readPump consumes control frames and closes done when the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump sends snapshots and keep-alive pings.
func writePump(conn *websocket.Conn, updates <-chan light.Snapshot, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))

				return
			}

			if err := conn.WriteJSON(newStateResponse(snap)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
