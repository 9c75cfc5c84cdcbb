package handlers

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/campusdesk/officehours/internal/realtime"
)

// LiveHandler serves the push channel.
type LiveHandler struct {
	hub          *realtime.Hub
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewLiveHandler constructs handler. pingInterval also bounds how long a silent
// peer is kept before its read deadline expires.
func NewLiveHandler(hub *realtime.Hub, pingInterval time.Duration, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{hub: hub, pingInterval: pingInterval, logger: logger}
}

// RequireUpgrade rejects plain HTTP requests to the live endpoint.
func (h *LiveHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream handles the upgraded connection for its whole lifetime.
func (h *LiveHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sub, err := h.hub.Subscribe(context.Background(), conn)
		if err != nil {
			h.logger.Warn("live subscribe failed", zap.Error(err))
			_ = conn.Close()
			return
		}
		defer h.hub.Unsubscribe(sub)

		h.extendReadDeadline(conn)
		conn.SetPongHandler(func(string) error {
			h.extendReadDeadline(conn)
			return nil
		})

		// Clients never send on this channel; reading only surfaces the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

func (h *LiveHandler) extendReadDeadline(conn *websocket.Conn) {
	if h.pingInterval <= 0 {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
}
