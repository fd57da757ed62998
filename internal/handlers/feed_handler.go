package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/middleware"
)

const (
	feedScopeKey = "feed_scope"
	writeWait    = 10 * time.Second
)

// FeedHandler streams change events over a websocket.
type FeedHandler struct {
	hub          *feed.Hub
	pingInterval time.Duration
}

func NewFeedHandler(hub *feed.Hub, pingInterval time.Duration) *FeedHandler {
	return &FeedHandler{hub: hub, pingInterval: pingInterval}
}

// Upgrade runs after the session middleware. Admins see every event, a client only
// its own rows.
func (h *FeedHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	p := middleware.GetPrincipal(c)
	scope := uuid.Nil
	if !p.IsAdmin() {
		scope = p.ClientID
	}
	c.Locals(feedScopeKey, scope)
	return c.Next()
}

func (h *FeedHandler) Stream(conn *websocket.Conn) {
	scope, _ := conn.Locals(feedScopeKey).(uuid.UUID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := h.hub.Subscribe(ctx, scope)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed unavailable"),
			time.Now().Add(writeWait))
		return
	}
	defer sub.Close()

	// Inbound frames are ignored; a read error means the peer went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("feed write failed", "error", err, "client_id", scope)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
