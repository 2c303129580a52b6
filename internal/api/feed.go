package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"humanpad/internal/domain"
	"humanpad/internal/observability"
)

const (
	feedWriteTimeout = 10 * time.Second
	feedPingInterval = 30 * time.Second
	feedSendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is broadcast-only and carries no per-user data.
	CheckOrigin: func(*http.Request) bool { return true },
}

// FeedHub fans executed trades out to websocket subscribers.
// Implements curve.Notifier.
type FeedHub struct {
	mu      sync.Mutex
	clients map[*feedClient]struct{}
	log     *zap.Logger
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewFeedHub creates an empty hub.
func NewFeedHub(log *zap.Logger) *FeedHub {
	return &FeedHub{
		clients: make(map[*feedClient]struct{}),
		log:     log,
	}
}

// BroadcastTrade sends one event to every connected client. Slow
// clients get dropped rather than blocking the trade path.
func (h *FeedHub) BroadcastTrade(e *domain.TradeEvent) {
	payload, err := json.Marshal(e)
	if err != nil {
		h.log.Error("failed to marshal trade event", zap.Error(err))
		return
	}

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	observability.RecordFeedBroadcast()
	observability.UpdateFeedClients(n)
}

// ServeHTTP upgrades the connection and subscribes it to the feed.
func (h *FeedHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{
		conn: conn,
		send: make(chan []byte, feedSendBuffer),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.UpdateFeedClients(n)

	go h.writePump(client)
	go h.readPump(client)
}

// Shutdown closes every client connection.
func (h *FeedHub) Shutdown(_ context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	observability.UpdateFeedClients(0)
}

func (h *FeedHub) writePump(c *feedClient) {
	ticker := time.NewTicker(feedPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains incoming frames so pings and closes are processed;
// the feed itself accepts no client messages.
func (h *FeedHub) readPump(c *feedClient) {
	defer h.drop(c)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *FeedHub) drop(c *feedClient) {
	h.mu.Lock()
	if _, exists := h.clients[c]; exists {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	c.conn.Close()
	observability.UpdateFeedClients(n)
}
