// Package bridgeweb is the optional diagnostics websocket server
// (§"Web" in SPEC_FULL.md's DOMAIN STACK): a thin observability surface
// that broadcasts call-state transitions to connected dashboards,
// grounded on the teacher's pkg/web WebSocketHub but narrowed to the
// bridge's own single-call event vocabulary.
package bridgeweb

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dbehnke/voicebridge/pkg/logger"
	"github.com/gorilla/websocket"
)

// Event is one diagnostics message broadcast to every connected client.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e *Event) Marshal() ([]byte, error) { return json.Marshal(e) }

type client struct {
	id       string
	conn     *websocket.Conn
	messages chan []byte
}

// Hub manages connected diagnostics clients and broadcasts bridge events
// to all of them, same shape as the teacher's WebSocketHub.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	log        *logger.Logger
	mu         sync.RWMutex
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		log:        log,
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug("diagnostics client registered", logger.String("client_id", c.id))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.messages)
			}
			h.mu.Unlock()
			h.log.Debug("diagnostics client unregistered", logger.String("client_id", c.id))

		case event := <-h.broadcast:
			data, err := event.Marshal()
			if err != nil {
				h.log.Error("failed to marshal diagnostics event", logger.Error(err))
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.messages <- data:
				default:
					h.log.Warn("diagnostics client buffer full, skipping", logger.String("client_id", c.id))
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.messages)
			}
			h.clients = make(map[*client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast queues event for delivery to every connected client.
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("diagnostics broadcast channel full, dropping event", logger.String("event_type", event.Type))
	}
}

// Handler upgrades and serves diagnostics websocket connections.
func (h *Hub) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
			return
		}
		c := &client{id: r.RemoteAddr, conn: conn, messages: make(chan []byte, 256)}
		h.register <- c

		go func() {
			defer func() {
				h.unregister <- c
				_ = c.conn.Close()
			}()
			c.conn.SetReadLimit(1024)
			for {
				if _, _, err := c.conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go func() {
			for msg := range c.messages {
				_ = c.conn.WriteMessage(websocket.TextMessage, msg)
			}
		}()
	})
}

// ClientCount returns the number of connected diagnostics clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastCallStart announces a newly started call.
func (h *Hub) BroadcastCallStart(srcID, dstID, streamID uint32, direction, protocol string) {
	h.Broadcast(Event{Type: "call_start", Data: map[string]interface{}{
		"srcId": srcID, "dstId": dstID, "streamId": streamID,
		"direction": direction, "protocol": protocol,
	}})
}

// BroadcastCallEnd announces a call ending after the given duration.
func (h *Hub) BroadcastCallEnd(srcID, dstID uint32, duration time.Duration) {
	h.Broadcast(Event{Type: "call_end", Data: map[string]interface{}{
		"srcId": srcID, "dstId": dstID, "durationSec": duration.Seconds(),
	}})
}

// BroadcastKeyStatus announces whether the crypto engine currently holds
// a valid TEK/MI pair for the active call.
func (h *Hub) BroadcastKeyStatus(algo byte, keyID uint16, loaded bool) {
	h.Broadcast(Event{Type: "key_status", Data: map[string]interface{}{
		"algo": algo, "keyId": keyID, "loaded": loaded,
	}})
}

// BroadcastPeerState announces the FNE peer connection's state.
func (h *Hub) BroadcastPeerState(state string) {
	h.Broadcast(Event{Type: "peer_state", Data: map[string]interface{}{
		"state": state,
	}})
}
