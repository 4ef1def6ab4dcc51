package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"go.uber.org/multierr"
)

var (
	// ErrHubClosed is returned by Push after Close.
	ErrHubClosed = errors.New("live hub is closed")

	// ErrSlowConsumer is returned when a connection's send buffer is full.
	ErrSlowConsumer = errors.New("connection send buffer full")
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Message is the frame written to a connection.
type Message struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Hub tracks live connections per username.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger.With(slog.String("component", "live_hub")),
	}
}

// Push sends payload on topic to every connection of username.
// A user without connections is not an error.
func (h *Hub) Push(ctx context.Context, username, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(Message{Topic: topic, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode live message: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}

	var errs error
	for c := range h.clients[username] {
		select {
		case c.send <- data:
		default:
			errs = multierr.Append(errs, fmt.Errorf("%w: user %s", ErrSlowConsumer, username))
		}
	}

	if errs != nil {
		logger.FromContextOrDefault(ctx, h.logger).Warn("dropped live message",
			slog.String("username", username),
			slog.String("topic", topic),
			slog.String("error", errs.Error()))
	}
	return errs
}

// Register attaches an upgraded connection to username and starts its
// read and write pumps. The connection is closed when the peer goes away
// or the hub closes.
func (h *Hub) Register(username string, conn *websocket.Conn) error {
	c := &client{
		hub:      h,
		username: username,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return ErrHubClosed
	}
	if h.clients[username] == nil {
		h.clients[username] = make(map[*client]struct{})
	}
	h.clients[username][c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	h.logger.Debug("live connection registered", slog.String("username", username))

	go c.writePump()
	go c.readPump()
	return nil
}

// ConnectionCount returns the number of open connections of username.
func (h *Hub) ConnectionCount(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[username])
}

// Close disconnects every connection and waits for their pumps to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			c.stop()
		}
	}
	h.mu.Unlock()

	h.wg.Wait()
	h.logger.Info("live hub closed")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.username]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.username)
			}
			c.stop()
			h.logger.Debug("live connection unregistered", slog.String("username", c.username))
		}
	}
}

type client struct {
	hub      *Hub
	username string
	conn     *websocket.Conn
	send     chan []byte
	stopOnce sync.Once
}

// stop ends the write pump, which closes the connection.
func (c *client) stop() {
	c.stopOnce.Do(func() { close(c.send) })
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.logger.Debug("live write failed",
					slog.String("username", c.username),
					slog.String("error", err.Error()))
				go c.hub.unregister(c)
				c.drain()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				go c.hub.unregister(c)
				c.drain()
				return
			}
		}
	}
}

// drain consumes the send channel until it is closed so a late Push never
// blocks on a dead connection.
func (c *client) drain() {
	for range c.send {
	}
}

// readPump only serves control frames; clients do not send data.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("live connection closed unexpectedly",
					slog.String("username", c.username),
					slog.String("error", err.Error()))
			}
			return
		}
	}
}
