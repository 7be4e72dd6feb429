package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/storefront/pkg/middleware"
	"github.com/vango-dev/storefront/pkg/navigation"
	"github.com/vango-dev/storefront/pkg/routepath"
)

// Hub fans navigation commits out to websocket subscribers and runs the
// navigation requests they send.
type Hub struct {
	nav     *navigation.Router
	config  *Config
	metrics *middleware.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	unsubscribe func()
}

// client is one websocket subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub(nav *navigation.Router, config *Config, metrics *middleware.Metrics) *Hub {
	h := &Hub{
		nav:     nav,
		config:  config,
		metrics: metrics,
		logger:  config.Logger.With("component", "hub"),
		clients: make(map[*client]struct{}),
	}
	h.unsubscribe = nav.Subscribe(h.broadcast)
	return h
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and stops listening for commits.
func (h *Hub) Close() {
	h.unsubscribe()
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) broadcast(c *navigation.Commit) {
	data, err := json.Marshal(envelope{Type: "commit", Commit: encodeCommit(c)})
	if err != nil {
		h.logger.Error("encode commit", "error", err)
		return
	}

	h.mu.Lock()
	var slow []*client
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.Unlock()

	for _, cl := range slow {
		h.logger.Warn("dropping slow subscriber", "remote", cl.conn.RemoteAddr().String())
		h.remove(cl)
	}
}

// deliver queues data for c if it is still connected.
func (h *Hub) deliver(c *client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.metrics != nil {
		h.metrics.SubscriberConnected()
	}

	// Queued under the lock so no broadcast lands ahead of it.
	if cur := h.nav.Current(); cur != nil {
		if data, err := json.Marshal(envelope{Type: "commit", Commit: encodeCommit(cur)}); err == nil {
			c.send <- data
		}
	}
	return true
}

// remove unregisters c and closes its queue; the write pump then closes the
// connection. Safe to call more than once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.metrics != nil {
		h.metrics.SubscriberDisconnected()
	}
}

// serve runs a subscriber until its connection closes.
func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, h.config.SendBuffer)}
	if !h.add(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.config.WriteTimeout))
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump reads navigation requests until the connection fails.
func (h *Hub) readPump(c *client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.remove(c)
	}()

	pongWait := 2 * h.config.PingInterval
	c.conn.SetReadLimit(h.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Error("read error", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var req navigateRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			h.sendError(c, routepath.ErrInvalidPath.WithDetail("malformed navigation request").Wrap(err))
			continue
		}

		// Commits arrive through broadcast; only failures are reported back.
		done := h.nav.Push(ctx, req.target())
		go func() {
			res := <-done
			if res.Err != nil && !errors.Is(res.Err, navigation.ErrSuperseded) {
				h.sendError(c, res.Err)
			}
		}()
	}
}

func (h *Hub) sendError(c *client, err error) {
	data, mErr := json.Marshal(envelope{Type: "error", Error: errorJSON(err)})
	if mErr != nil {
		return
	}
	h.deliver(c, data)
}

// writePump drains the client's queue and keeps the connection alive.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
