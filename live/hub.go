// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/danielhkuo/opinion-sim/metrics"
	"github.com/danielhkuo/opinion-sim/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Messages queued per connection before new ones are dropped
	sendBuffer     = 32
	maxMessageSize = 4096
)

// Event is one progress step produced by a generation. PollID is zero
// while the poll has not been stored yet.
type Event struct {
	PollID    int
	SessionID string
	Step      models.AnalysisStep
}

type Options struct {
	// BroadcastAll delivers every event to every connection, ignoring subscriptions
	BroadcastAll bool
	Metrics      *metrics.Metrics
}

// Hub tracks live connections and routes progress events to them
type Hub struct {
	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
	opts   Options

	upgrader websocket.Upgrader
}

func NewHub(opts Options) *Hub {
	return &Hub{
		conns: make(map[*conn]struct{}),
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

type conn struct {
	ws   *websocket.Conn
	send chan any

	mu        sync.Mutex
	sessionID string
	pollID    int
}

func (c *conn) wants(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.SessionID != "" && ev.SessionID == c.sessionID {
		return true
	}
	return ev.PollID != 0 && ev.PollID == c.pollID
}

func (c *conn) subscribe(msg models.InboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.PollID > 0 {
		c.pollID = msg.PollID
	}
	if msg.SessionID != "" {
		c.sessionID = msg.SessionID
	}
}

// Broadcast queues ev for every interested connection. Connections with a
// full buffer miss the event; there is no replay.
func (h *Hub) Broadcast(ev Event) {
	msg := models.StepMessage{
		Type:   models.MessageAnalysisStep,
		Step:   ev.Step,
		PollID: ev.PollID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for c := range h.conns {
		if !h.opts.BroadcastAll && !c.wants(ev) {
			continue
		}
		select {
		case c.send <- msg:
			delivered++
		default:
			slog.Warn("dropping live event for slow subscriber", "step", ev.Step.Type)
		}
	}

	slog.Debug("analysis step broadcast", "step", ev.Step.Type, "poll_id", ev.PollID, "delivered", delivered)
}

// Subscribers returns the number of open connections
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// ServeHTTP upgrades the request to a websocket and serves it until the
// client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade the websocket", "error", err)
		return
	}

	c := &conn{
		ws:        ws,
		send:      make(chan any, sendBuffer),
		sessionID: uuid.NewString(),
	}
	if !h.register(c) {
		ws.Close()
		return
	}
	defer h.unregister(c)

	slog.Info("live client connected", "session_id", c.sessionID, "remote", r.RemoteAddr)

	c.send <- models.ConnectedMessage{Type: models.MessageConnected, SessionID: c.sessionID}

	go c.writePump()
	c.readPump()
}

// Close disconnects every client. Later upgrades are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.conns {
		c.ws.Close()
	}
}

func (h *Hub) register(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	h.opts.Metrics.SubscriberConnected()
	return true
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	// Closing under the hub lock means Broadcast never sends on a closed channel
	close(c.send)
	h.opts.Metrics.SubscriberDisconnected()
	slog.Info("live client disconnected", "session_id", c.sessionID)
}

func (c *conn) readPump() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("live connection closed unexpectedly", "error", err)
			}
			return
		}

		var msg models.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid live message", "error", err)
			continue
		}

		switch msg.Type {
		case models.MessageSubscribe:
			c.subscribe(msg)
			slog.Debug("live client subscribed", "poll_id", msg.PollID, "session_id", msg.SessionID)
		default:
			slog.Warn("unknown live message type", "type", msg.Type)
		}
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				slog.Warn("failed to write live message", "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
