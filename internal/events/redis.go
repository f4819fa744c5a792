package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eleven-am/voice-translator/internal/transport"
	"github.com/redis/go-redis/v9"
)

const eventChannelFormat = "translator:%s:events"

func EventChannel(ch transport.Channel) string {
	return fmt.Sprintf(eventChannelFormat, ch)
}

// RedisSink mirrors events onto Redis pub/sub for out-of-process listeners.
type RedisSink struct {
	redis  *redis.Client
	logger *slog.Logger
}

func NewRedisSink(client *redis.Client, logger *slog.Logger) *RedisSink {
	return &RedisSink{
		redis:  client,
		logger: logger.With("component", "redis_sink"),
	}
}

func (s *RedisSink) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	channel := EventChannel(evt.Channel)
	if err := s.redis.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	s.logger.Debug("published event", "channel", channel, "kind", evt.Kind)
	return nil
}
