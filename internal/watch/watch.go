// Package watch mirrors the portal's change feed into memory for operators.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/models"
)

const (
	pongWait    = 60 * time.Second
	dialTimeout = 10 * time.Second
)

// Mirror holds one cache per client-owned table.
type Mirror struct {
	Clients   *feed.Cache[models.Client]
	Tasks     *feed.Cache[models.Task]
	Documents *feed.Cache[models.Document]
	Messages  *feed.Cache[models.Message]
}

func NewMirror() *Mirror {
	return &Mirror{
		Clients:   feed.NewCache("clients", func(c models.Client) string { return c.ID.String() }),
		Tasks:     feed.NewCache("tasks", func(t models.Task) string { return t.ID.String() }),
		Documents: feed.NewCache("documents", func(d models.Document) string { return d.ID.String() }),
		Messages:  feed.NewCache("messages", func(m models.Message) string { return m.ID.String() }),
	}
}

// Apply routes an event to every cache; each ignores tables it does not mirror.
func (m *Mirror) Apply(ev feed.Event) error {
	return errors.Join(
		m.Clients.Apply(ev),
		m.Tasks.Apply(ev),
		m.Documents.Apply(ev),
		m.Messages.Apply(ev),
	)
}

// Login signs in against the portal API and returns the access token. kind is
// "admin" or "client".
func Login(ctx context.Context, baseURL, kind, email, password string) (string, error) {
	var session dto.SessionResponse
	var apiErr dto.ErrorResponse

	resp, err := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		R().
		SetContext(ctx).
		SetBody(dto.LoginRequest{Email: email, Password: password}).
		SetResult(&session).
		SetError(&apiErr).
		Post("/api/auth/" + kind + "/login")
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("login rejected (status %d): %s", resp.StatusCode(), apiErr.Message)
	}
	return session.AccessToken, nil
}

// FeedURL turns the API base URL into the websocket feed address.
func FeedURL(baseURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/api/feed"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// Stream reads events until ctx is done or the server closes the connection. Each
// event is merged into m before onEvent sees it.
func Stream(ctx context.Context, feedURL string, m *Mirror, onEvent func(feed.Event)) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, feedURL, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close()

	stop, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-stop.Done()
		if ctx.Err() == nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		var ev feed.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := m.Apply(ev); err != nil {
			slog.Warn("failed to apply feed event", "table", ev.Table, "type", ev.Type, "error", err)
			continue
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
}
