package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier sends changes over a Redis pub/sub channel. Messages sent
// while a subscriber is disconnected are lost; the store reloads on
// reconnect to cover the gap.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// NewRedisNotifier creates a notifier on channel. The client is owned by
// the caller.
func NewRedisNotifier(client redis.UniversalClient, channel string, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// Publish sends change on the channel.
func (n *RedisNotifier) Publish(ctx context.Context, change Change) error {
	data, err := encode(change)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish rule change to %s: %w", n.channel, err)
	}
	return nil
}

// Subscribe receives changes until ctx is cancelled.
func (n *RedisNotifier) Subscribe(ctx context.Context, fn func(Change)) error {
	pubsub := n.client.Subscribe(ctx, n.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed so that a publish right
	// after Subscribe returns is not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}
	n.logger.Info("subscribed to rule changes", "backend", "redis", "channel", n.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			change, err := decode([]byte(msg.Payload))
			if err != nil {
				n.logger.Warn("ignoring malformed rule change", "error", err)
				continue
			}
			fn(change)
		}
	}
}

// Close does nothing; the client belongs to the caller.
func (n *RedisNotifier) Close() error { return nil }
