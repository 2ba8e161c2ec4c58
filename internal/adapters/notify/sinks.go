package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
)

// RedisSink publishes each notification as JSON on the channel
// prefix+topic.
type RedisSink struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSink creates a RedisSink. An empty prefix uses "verdict.".
func NewRedisSink(client redis.UniversalClient, prefix string) *RedisSink {
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	return &RedisSink{client: client, prefix: prefix}
}

// Channel returns the Redis channel a topic is published on.
func (s *RedisSink) Channel(topic string) string {
	return s.prefix + topic
}

// Deliver publishes n.
func (s *RedisSink) Deliver(ctx context.Context, n model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", n.ID, err)
	}
	if err := s.client.Publish(ctx, s.Channel(n.Topic), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", n.Topic, err)
	}
	return nil
}

// LogSink writes notifications to the log. It is the sink used when no
// Redis is configured.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a LogSink. A nil logger uses the "notify" logger.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Named("notify")
	}
	return &LogSink{log: l}
}

// Deliver logs n.
func (s *LogSink) Deliver(ctx context.Context, n model.Notification) error {
	s.log.Info(ctx, "notification",
		logger.String("id", n.ID),
		logger.String("topic", n.Topic),
		logger.Any("payload", n.Payload),
	)
	return nil
}

var (
	_ Sink = (*RedisSink)(nil)
	_ Sink = (*LogSink)(nil)
)
