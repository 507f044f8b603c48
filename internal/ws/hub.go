package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// ErrClientGone is returned by Client.Send once the connection is closing.
var ErrClientGone = errors.New("websocket client gone")

const writeTimeout = 5 * time.Second

// Client represents a connected WebSocket client.
type Client struct {
	conn   *websocket.Conn
	remote string
	send   chan Message
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func newClient(conn *websocket.Conn, remote string, logger *zap.Logger) *Client {
	return &Client{
		conn:   conn,
		remote: remote,
		send:   make(chan Message, 256),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send queues msg for the client. It blocks while the buffer is full and
// fails once ctx ends or the connection is closing.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case <-c.done:
		return ErrClientGone
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClientGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub tracks active WebSocket connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", zap.String("remote", c.remote))
}

// Unregister removes a client from the hub and marks it closing.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	h.logger.Debug("websocket client disconnected", zap.String("remote", c.remote))
}

// Broadcast offers msg to every client without blocking; clients with a
// full buffer miss it.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client send buffer full, dropping message", zap.String("remote", c.remote))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump sends queued messages until the client closes or a write fails.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			c.drain(ctx)
			return
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				c.logger.Debug("websocket write error", zap.Error(err))
				return
			}
		}
	}
}

// drain flushes what is already queued so a final error or done frame is
// not lost when the client is closed right after sending it.
func (c *Client) drain(ctx context.Context) {
	for {
		select {
		case msg := <-c.send:
			if c.write(ctx, msg) != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg Message) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c.conn, msg)
}

// readPump decodes inbound requests and hands each to serve in turn. A
// malformed message is answered with an error frame; the connection stays
// open. It returns when the client disconnects.
func (c *Client) readPump(ctx context.Context, serve ServeFunc) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		var in Inbound
		if typ != websocket.MessageText || json.Unmarshal(data, &in) != nil {
			_ = c.Send(ctx, Message{Type: MessageError, Data: ErrorData{Error: "invalid message"}})
			continue
		}
		serve(ctx, c, in)
	}
}
