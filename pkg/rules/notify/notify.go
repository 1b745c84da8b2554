// Package notify broadcasts rule set changes between hubflow processes.
//
// A publisher (hubflow rules publish, or any process that writes the rule
// source) announces a Change; every running server subscribes and reloads
// its rule snapshot. Redis pub/sub and Kafka are supported. Kafka consumers
// use a per-process group ID so that every replica receives every change.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/amanaz3/customer-hub-flow-sub006/pkg/config"

	"github.com/redis/go-redis/v9"
)

// Change announces that a new rule version is active.
type Change struct {
	Source      string    `json:"source"`
	Version     int       `json:"version"`
	PublishedBy string    `json:"publishedBy,omitempty"`
	At          time.Time `json:"at"`
}

// Notifier publishes and receives rule changes.
type Notifier interface {
	// Publish announces a change.
	Publish(ctx context.Context, change Change) error

	// Subscribe blocks until ctx is cancelled, calling fn for every
	// change received.
	Subscribe(ctx context.Context, fn func(Change)) error

	// Close releases the underlying connections.
	Close() error
}

// New creates the notifier selected by cfg.Rules.Notifications.Backend.
// rdb is only used by the redis backend.
func New(cfg *config.Config, rdb redis.UniversalClient, logger *slog.Logger) (Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	n := cfg.Rules.Notifications
	switch n.Backend {
	case "", "none":
		return Noop{}, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis notifications require a redis client")
		}
		return NewRedisNotifier(rdb, n.Channel, logger), nil
	case "kafka":
		return NewKafkaNotifier(cfg.Kafka.Brokers, n.Topic, n.GroupID, logger)
	default:
		return nil, fmt.Errorf("unknown notification backend %q", n.Backend)
	}
}

func encode(change Change) ([]byte, error) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	data, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule change: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Change, error) {
	var change Change
	if err := json.Unmarshal(data, &change); err != nil {
		return Change{}, fmt.Errorf("failed to decode rule change: %w", err)
	}
	return change, nil
}

// Noop discards published changes and never delivers any.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, Change) error { return nil }

// Subscribe blocks until ctx is cancelled.
func (Noop) Subscribe(ctx context.Context, _ func(Change)) error {
	<-ctx.Done()
	return nil
}

// Close does nothing.
func (Noop) Close() error { return nil }
