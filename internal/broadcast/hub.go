// Package broadcast streams every trigger that passed the presence policy to
// websocket subscribers. It is the funnel's always-on external notification.
package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/camera-funnel/internal/domain/trigger"
	"github.com/oshokin/camera-funnel/internal/logger"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

// Message is the JSON frame pushed to subscribers.
type Message struct {
	Type    string    `json:"type"`
	Camera  string    `json:"camera"`
	State   bool      `json:"state"`
	Channel string    `json:"channel"`
	Time    time.Time `json:"time"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	closed bool
}

// Hub fans notifications out to connected websocket clients.
// Slow clients are dropped instead of blocking the resolver.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Notify pushes the trigger to every subscriber without waiting for them.
func (h *Hub) Notify(ctx context.Context, t trigger.Trigger) {
	payload, err := json.Marshal(Message{
		Type:    string(t.Type),
		Camera:  t.Camera,
		State:   t.State,
		Channel: string(t.Channel),
		Time:    time.Now().UTC(),
	})
	if err != nil {
		logger.ErrorKV(ctx, "Encode notification", "error", err)

		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			logger.WarnKV(ctx, "Dropping slow websocket subscriber", "remote", c.conn.RemoteAddr().String())
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the subscriber until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.WarnKV(r.Context(), "Websocket upgrade failed", "error", err)

		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)

	// Subscribers never talk; reading only detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout),
	)
}

func (h *Hub) removeLocked(c *client) {
	if c.closed {
		return
	}

	c.closed = true
	delete(h.clients, c)
	close(c.send)
}
