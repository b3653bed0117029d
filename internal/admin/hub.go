package admin

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"droneops-dispatch/internal/telemetry"
)

// Envelope types pushed to websocket clients.
const (
	TypePosition       = "position"
	TypeAlert          = "alert"
	TypeAlertExpired   = "alert_expired"
	TypeAlertDismissed = "alert_dismissed"
	TypeMission        = "mission"
	TypeState          = "state"
)

const (
	clientBuffer = 256
	writeWait    = 10 * time.Second
)

// Envelope wraps every message on the /ws stream.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans simulator rows out to websocket clients. It implements the
// simulator's writer interfaces so it can sit in a MultiWriter.
type Hub struct {
	upgrader ws.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *ws.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger.With("component", "ws"),
		clients:  make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams envelopes until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer), done: make(chan struct{})}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	go h.readLoop(c)
	h.writeLoop(c)
}

// writeLoop drains the client's queue. It returns on write error or close.
func (h *Hub) writeLoop(c *client) {
	defer h.drop(c)
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

// readLoop discards client messages and notices disconnects.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.stop()
			return
		}
	}
}

func (c *client) stop() { c.once.Do(func() { close(c.done) }) }

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
	_ = c.conn.Close()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// broadcast queues an envelope for every client. Slow clients drop messages.
func (h *Hub) broadcast(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client queue full, dropping message", "type", msgType)
		}
	}
	return nil
}

// Write broadcasts a position row.
func (h *Hub) Write(row telemetry.PositionRow) error {
	return h.broadcast(TypePosition, row)
}

// WriteAlert broadcasts an alert transition.
func (h *Hub) WriteAlert(row telemetry.AlertRow) error {
	switch row.State {
	case telemetry.AlertExpired:
		return h.broadcast(TypeAlertExpired, row)
	case telemetry.AlertDismissed:
		return h.broadcast(TypeAlertDismissed, row)
	default:
		return h.broadcast(TypeAlert, row)
	}
}

// WriteMissionEvent broadcasts a mission step.
func (h *Hub) WriteMissionEvent(row telemetry.MissionEventRow) error {
	return h.broadcast(TypeMission, row)
}

// WriteState broadcasts dispatcher counters.
func (h *Hub) WriteState(row telemetry.DispatchStateRow) error {
	return h.broadcast(TypeState, row)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.stop()
	}
	return nil
}
