package bus

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// envelope is the wire shape delivered to WebSocket observers.
type envelope struct {
	Event string `json:"event"`
	Data  Event  `json:"data"`
}

// Broadcaster mirrors bus events to WebSocket-connected UI observers. It
// subscribes itself to the bus and fans every event out to all open
// connections.
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*websocket.Conn]bool
}

// NewBroadcaster creates a broadcaster and registers it on the bus.
func NewBroadcaster(b *Bus) *Broadcaster {
	br := &Broadcaster{
		conns: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			// The agent binds to loopback; the UI shell connects from a
			// file:// or app:// origin, so origin checking is disabled.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	b.Subscribe(br.handle)
	return br
}

// ServeHTTP upgrades the request to a WebSocket and holds the connection
// open until the client goes away.
func (br *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := br.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	br.attach(conn)
	defer br.detach(conn)

	// Observers only receive; drain the read side until close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ConnectionCount returns the number of attached observers.
func (br *Broadcaster) ConnectionCount() int {
	br.mu.RLock()
	defer br.mu.RUnlock()
	return len(br.conns)
}

func (br *Broadcaster) attach(conn *websocket.Conn) {
	br.mu.Lock()
	defer br.mu.Unlock()
	br.conns[conn] = true
}

func (br *Broadcaster) detach(conn *websocket.Conn) {
	br.mu.Lock()
	defer br.mu.Unlock()
	delete(br.conns, conn)
	_ = conn.Close()
}

// handle serializes the event once and writes it to every connection.
func (br *Broadcaster) handle(e Event) {
	br.mu.RLock()
	defer br.mu.RUnlock()

	if len(br.conns) == 0 {
		return
	}

	data, err := json.Marshal(envelope{Event: e.Name(), Data: e})
	if err != nil {
		slog.Error("failed to marshal event", "event", e.Name(), "error", err)
		return
	}

	for conn := range br.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Warn("failed to send event to observer",
				"event", e.Name(),
				"error", err,
			)
			// Connection is cleaned up when the read loop exits.
		}
	}
}
