package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaNotifier sends changes over a Kafka topic.
type KafkaNotifier struct {
	brokers []string
	topic   string
	groupID string
	logger  *slog.Logger

	writer *kafka.Writer
}

// NewKafkaNotifier creates a notifier on topic. Subscribers join groupID;
// each process should use its own group.
func NewKafkaNotifier(brokers []string, topic, groupID string, logger *slog.Logger) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &KafkaNotifier{
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		logger:  logger,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Publish writes change to the topic, keyed by source.
func (n *KafkaNotifier) Publish(ctx context.Context, change Change) error {
	data, err := encode(change)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(change.Source),
		Value: data,
		Headers: []kafka.Header{
			{Key: "rule-version", Value: []byte(strconv.Itoa(change.Version))},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish rule change to %s: %w", n.topic, err)
	}
	return nil
}

// Subscribe consumes the topic until ctx is cancelled. Offsets are
// committed after fn returns.
func (n *KafkaNotifier) Subscribe(ctx context.Context, fn func(Change)) error {
	if n.groupID == "" {
		return errors.New("group ID is required to subscribe")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     n.brokers,
		Topic:       n.topic,
		GroupID:     n.groupID,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	n.logger.Info("subscribed to rule changes", "backend", "kafka", "topic", n.topic, "group_id", n.groupID)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			n.logger.Error("failed to fetch rule change", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if change, err := decode(msg.Value); err != nil {
			n.logger.Warn("ignoring malformed rule change", "offset", msg.Offset, "error", err)
		} else {
			fn(change)
		}

		// Commit malformed messages too so the group does not get stuck.
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			n.logger.Error("failed to commit rule change", "offset", msg.Offset, "error", err)
		}
	}
}

// Close closes the writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
