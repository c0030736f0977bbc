package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub keeps every live connection and delivers outbound messages. It
// implements the coordinator's Broadcaster.
type Hub struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]*connection
}

// connection wraps a socket with a write lock; gorilla allows at most one
// concurrent writer per connection.
type connection struct {
	socket *websocket.Conn
	mu     sync.Mutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("component", "hub"),
		conns:  make(map[string]*connection),
	}
}

func (that *Hub) register(connID string, socket *websocket.Conn) {
	that.mu.Lock()
	that.conns[connID] = &connection{socket: socket}
	that.mu.Unlock()
}

func (that *Hub) unregister(connID string) {
	that.mu.Lock()
	delete(that.conns, connID)
	that.mu.Unlock()
}

// Broadcast fans one event out to the given connections. Delivery failures
// are logged per connection and never abort the fan-out.
func (that *Hub) Broadcast(connIDs []string, event string, payload any) {
	for _, connID := range connIDs {
		if err := that.Send(connID, event, payload); err != nil {
			that.logger.Error("failed to deliver event", "event", event, "connID", connID, "error", err)
		}
	}
}

// Send writes one message to one connection.
func (that *Hub) Send(connID, action string, payload any) error {
	that.mu.RLock()
	conn, ok := that.conns[connID]
	that.mu.RUnlock()

	if !ok {
		return ErrConnNotFound
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	return conn.socket.WriteJSON(Message{Action: action, Payload: raw})
}
