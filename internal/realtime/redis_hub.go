package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "workflow:changes:"

// redisHub carries change events over Redis pub/sub so every instance of the
// service sees commits made by the others. Per-channel ordering follows Redis
// publish order, which matches commit order for a single publishing instance.
type redisHub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisHub creates a Redis-backed hub.
func NewRedisHub(client *redis.Client, logger *zap.Logger) Hub {
	return &redisHub{client: client, logger: logger}
}

func channelFor(identity string) string {
	return channelPrefix + identity
}

func (h *redisHub) Publish(ctx context.Context, identity string, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.client.Publish(ctx, channelFor(identity), payload).Err()
}

func (h *redisHub) Subscribe(ctx context.Context, identity string) (*Subscription, error) {
	ps := h.client.Subscribe(ctx, channelFor(identity))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &Subscription{events: make(chan ChangeEvent, subscriberBuffer)}
	sub.release = func() {
		// Closing the PubSub ends the reader goroutine, which then closes the
		// events channel.
		_ = ps.Close()
	}

	go func() {
		defer close(sub.events)
		for msg := range ps.Channel() {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warn("dropping malformed change event", zap.Error(err))
				continue
			}
			select {
			case sub.events <- event:
			default:
				h.logger.Warn("subscriber too slow, dropping change event",
					zap.String("channel", msg.Channel))
			}
		}
	}()

	return sub, nil
}
