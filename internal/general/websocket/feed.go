package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"bus-fleet/internal/general/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = (wsPongWait * 9) / 10
	wsReadLimit    = 4 << 10
	wsSendBuffer   = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// dashboards are served from other origins; the feed is read-only
	CheckOrigin: func(*http.Request) bool { return true },
}

// Feed fans fleet events out to every connected dashboard.
// Subscribers only receive; anything they send is discarded.
type Feed struct {
	logger *logger.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

// NewFeed creates an empty feed.
func NewFeed(logger *logger.Logger) *Feed {
	return &Feed{
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// ServeHTTP upgrades the request and keeps the subscriber registered until it disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn(r.Context(), "ws_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}
	f.add(c)

	f.logger.Info(r.Context(), "ws_connected", "Fleet feed subscriber connected", map[string]any{
		"subscriber_id": c.id,
		"remote_addr":   r.RemoteAddr,
	})

	go f.writeLoop(c)
	f.readLoop(c)

	f.remove(c)
	f.logger.Info(r.Context(), "ws_disconnected", "Fleet feed subscriber disconnected", map[string]any{
		"subscriber_id": c.id,
	})
}

// Broadcast encodes v once and queues it for every subscriber.
// A subscriber whose buffer is full is disconnected rather than blocking the others.
func (f *Feed) Broadcast(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	f.mu.RLock()
	var slow []*client
	for _, c := range f.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	f.mu.RUnlock()

	for _, c := range slow {
		f.remove(c)
	}
	return nil
}

// Count returns the number of connected subscribers.
func (f *Feed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close disconnects every subscriber.
func (f *Feed) Close() {
	f.mu.Lock()
	clients := make([]*client, 0, len(f.clients))
	for _, c := range f.clients {
		clients = append(clients, c)
	}
	f.mu.Unlock()

	for _, c := range clients {
		f.remove(c)
	}
}

func (f *Feed) add(c *client) {
	f.mu.Lock()
	f.clients[c.id] = c
	f.mu.Unlock()
}

// remove is idempotent.
func (f *Feed) remove(c *client) {
	f.mu.Lock()
	delete(f.clients, c.id)
	f.mu.Unlock()

	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readLoop discards inbound frames and keeps the pong deadline fresh.
func (f *Feed) readLoop(c *client) {
	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writeLoop(c *client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				f.remove(c)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				f.remove(c)
				return
			}
		}
	}
}
