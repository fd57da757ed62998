package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var ErrHubClosed = errors.New("feed hub closed")

const subscriberBuffer = 64

// Subscription receives events on C until it is closed or the hub stops. A subscriber
// that falls behind is dropped and its channel closed.
type Subscription struct {
	C <-chan Event

	send     chan Event
	clientID uuid.UUID
	hub      *Hub
	once     sync.Once
}

func (s *Subscription) wants(ev Event) bool {
	if s.clientID == uuid.Nil {
		return true
	}
	return ev.ClientID == s.clientID && ev.Table != "admins"
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
	})
}

// Hub fans events out to in-process subscribers.
type Hub struct {
	subscribers map[*Subscription]bool
	broadcast   chan Event
	register    chan *Subscription
	unregister  chan *Subscription
	done        chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*Subscription]bool),
		broadcast:   make(chan Event, subscriberBuffer),
		register:    make(chan *Subscription),
		unregister:  make(chan *Subscription),
		done:        make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every subscription.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for sub := range h.subscribers {
				close(sub.send)
			}
			h.subscribers = nil
			return
		case sub := <-h.register:
			h.subscribers[sub] = true
			slog.Debug("feed subscriber added", "client_id", sub.clientID, "total", len(h.subscribers))
		case sub := <-h.unregister:
			if h.subscribers[sub] {
				delete(h.subscribers, sub)
				close(sub.send)
			}
		case ev := <-h.broadcast:
			for sub := range h.subscribers {
				if !sub.wants(ev) {
					continue
				}
				select {
				case sub.send <- ev:
				default:
					slog.Warn("feed subscriber too slow, dropping", "client_id", sub.clientID)
					delete(h.subscribers, sub)
					close(sub.send)
				}
			}
		}
	}
}

// Subscribe registers a subscriber. A nil clientID receives every event; otherwise
// only events owned by that client are delivered.
func (h *Hub) Subscribe(ctx context.Context, clientID uuid.UUID) (*Subscription, error) {
	send := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: send, send: send, clientID: clientID, hub: h}

	select {
	case h.register <- sub:
		return sub, nil
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Publish(ctx context.Context, ev Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	case <-ctx.Done():
	}
}
