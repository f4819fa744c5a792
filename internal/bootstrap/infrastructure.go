package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/voice-translator/internal/events"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// ProvideRedisClient returns nil when REDIS_ADDR is unset; events then stay
// in process.
func ProvideRedisClient(lc fx.Lifecycle, cfg *Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func ProvideEventHub(lc fx.Lifecycle, client *redis.Client, logger *slog.Logger) *events.Hub {
	var sinks []events.Sink
	if client != nil {
		sinks = append(sinks, events.NewRedisSink(client, logger))
	}

	hub := events.NewHub(logger, sinks...)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			hub.Close()
			return nil
		},
	})
	return hub
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideRedisClient,
		ProvideEventHub,
	),
)
