package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"runner-service/internal/logging"
)

// Well-known topic names.
const (
	TopicTokenGenerated = "token.generated"
	TopicTokenClaimed   = "token.claimed"
	TopicTokenRedeemed  = "token.redeemed"
)

// Topics lists every topic the service produces to.
var Topics = []string{TopicTokenGenerated, TopicTokenClaimed, TopicTokenRedeemed}

// Handler processes a single message value.
type Handler func(ctx context.Context, value []byte) error

// Client wraps Kafka operations.
type Client struct {
	brokers []string
	writer  *kafkago.Writer
	log     logging.Logger
}

// NewClient returns a Client connected to the given brokers.
func NewClient(brokers []string, log logging.Logger) *Client {
	return &Client{
		brokers: brokers,
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
		log: log,
	}
}

// EnsureTopics creates topics if they don't already exist (with retry).
func (c *Client) EnsureTopics(ctx context.Context, topics ...string) error {
	if len(c.brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	for attempt := 1; attempt <= 20; attempt++ {
		conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
		if err != nil {
			c.log.Warn(ctx, "kafka not ready, retrying", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		configs := make([]kafkago.TopicConfig, len(topics))
		for i, t := range topics {
			configs[i] = kafkago.TopicConfig{
				Topic:             t,
				NumPartitions:     3,
				ReplicationFactor: 1,
			}
		}

		err = conn.CreateTopics(configs...)
		_ = conn.Close()
		if err != nil {
			c.log.Info(ctx, "topic creation returned (may already exist)", "error", err)
		}
		c.log.Info(ctx, "kafka topics ensured", "topics", topics)
		return nil
	}
	return fmt.Errorf("kafka: could not connect after 20 attempts")
}

// Publish sends a JSON-serialised message to a topic.
func (c *Client) Publish(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", topic, err)
	}
	return c.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
}

// Subscribe starts a background goroutine that reads from a topic until ctx ends.
// A new group starts at the newest offset.
func (c *Client) Subscribe(ctx context.Context, topic, groupID string, handler Handler) {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     c.brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafkago.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	go func() {
		defer r.Close()
		for {
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Error(ctx, "kafka read failed", "topic", topic, "error", err)
				time.Sleep(time.Second)
				continue
			}
			if err := handler(ctx, msg.Value); err != nil {
				c.log.Warn(ctx, "kafka handler failed", "topic", topic, "error", err)
			}
		}
	}()
}

// Close flushes and closes the shared writer.
func (c *Client) Close() error {
	return c.writer.Close()
}
