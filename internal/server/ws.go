package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/autoframe/internal/log"
	"github.com/ayusman/autoframe/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local overlay clients
	},
}

const (
	writeWait  = 2 * time.Second
	clientSend = 32
)

// Message is one guidance websocket message.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// GuidanceHub broadcasts controller notifications to websocket clients. It is an
// orchestrator.Sink; broadcasting never blocks the controller loop and slow
// clients miss messages.
type GuidanceHub struct {
	orchestrator.NopSink

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	last    []byte
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewGuidanceHub creates an empty hub.
func NewGuidanceHub() *GuidanceHub {
	return &GuidanceHub{clients: make(map[*hubClient]struct{})}
}

// FrameProcessed broadcasts the snapshot.
func (h *GuidanceHub) FrameProcessed(s orchestrator.Snapshot) {
	h.broadcast(Message{Type: "snapshot", Data: s}, true)
}

// PhaseChanged broadcasts the transition.
func (h *GuidanceHub) PhaseChanged(e orchestrator.PhaseEvent) {
	h.broadcast(Message{Type: "phase", Data: e}, false)
}

type captureMessage struct {
	orchestrator.CaptureEvent
	Error string `json:"error,omitempty"`
}

// Captured broadcasts the shot, or the failure.
func (h *GuidanceHub) Captured(e orchestrator.CaptureEvent) {
	m := captureMessage{CaptureEvent: e}
	if e.Err != nil {
		m.Error = e.Err.Error()
	}
	h.broadcast(Message{Type: "capture", Data: m}, false)
}

// Clients returns the number of connected clients.
func (h *GuidanceHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *GuidanceHub) broadcast(m Message, remember bool) {
	msg, err := json.Marshal(m)
	if err != nil {
		log.Debug("guidance encode failed", "type", m.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if remember {
		h.last = msg
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// ServeHTTP upgrades the request and streams messages until the client leaves.
// A new client first receives the latest snapshot.
func (h *GuidanceHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, clientSend)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	if h.last != nil {
		c.send <- h.last
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()

	// Reads only detect the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *GuidanceHub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *hubClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Close disconnects every client and refuses new ones.
func (h *GuidanceHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
