package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-redis/redis/v8"
)

// RedisRelay publishes events on a Redis channel and feeds every event received on
// that channel into the local hub, so all instances see all changes.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, hub: hub}
}

// Publish falls back to the local hub when Redis is unavailable.
func (r *RedisRelay) Publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("feed event marshal failed", "table", ev.Table, "error", err)
		return
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		slog.Warn("feed relay publish failed, delivering locally", "channel", r.channel, "error", err)
		r.hub.Publish(ctx, ev)
	}
}

// Run subscribes to the channel and forwards events until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	slog.Info("feed relay subscribed", "channel", r.channel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("feed relay dropped malformed event", "error", err)
				continue
			}
			r.hub.Publish(ctx, ev)
		}
	}
}
