// Package ws streams chat answers to browsers over WebSocket.
package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// ServeFunc answers one inbound request, streaming frames with c.Send.
type ServeFunc func(ctx context.Context, c *Client, in Inbound)

// Handler upgrades requests to WebSocket connections and feeds every
// inbound message to a ServeFunc.
type Handler struct {
	hub            *Hub
	serve          ServeFunc
	originPatterns []string
	logger         *zap.Logger
}

// NewHandler returns a handler. originPatterns lists the cross-origin hosts
// allowed to connect; same-origin requests are always accepted.
func NewHandler(serve ServeFunc, originPatterns []string, logger *zap.Logger) *Handler {
	return &Handler{
		hub:            NewHub(logger),
		serve:          serve,
		originPatterns: originPatterns,
		logger:         logger,
	}
}

// Hub returns the handler's connection hub.
func (h *Handler) Hub() *Hub { return h.hub }

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	client := newClient(conn, r.RemoteAddr, h.logger)
	h.hub.Register(client)

	ctx, cancel := context.WithCancel(r.Context())
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		cancel()
		close(done)
	}()

	client.readPump(ctx, h.serve)

	h.hub.Unregister(client)
	<-done
	cancel()
	conn.Close(websocket.StatusNormalClosure, "")
}

// Shutdown tells every connected client the server is going away.
func (h *Handler) Shutdown() {
	h.hub.Broadcast(Message{Type: MessageError, Data: ErrorData{Error: "server shutting down"}})
}
