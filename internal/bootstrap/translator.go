package bootstrap

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/voice-translator/internal/channel"
	"github.com/eleven-am/voice-translator/internal/events"
	"github.com/eleven-am/voice-translator/internal/processor"
	"github.com/eleven-am/voice-translator/internal/translator"
	"github.com/gorilla/websocket"
	"go.uber.org/fx"
)

func translatorConfig(cfg *Config) translator.Config {
	return translator.Config{
		Scheme:        cfg.WSScheme,
		APIBase:       cfg.APIBase,
		DialTimeout:   cfg.DialTimeout,
		MaxQueueSize:  cfg.MaxQueueSize,
		StaleAfter:    cfg.StaleAfter,
		PruneInterval: cfg.PruneInterval,
		Policy: processor.RetryPolicy{
			SendTimeout:            cfg.SendTimeout,
			TimeoutRetryDelay:      cfg.TimeoutRetryDelay,
			FailureRetryDelay:      cfg.FailureRetryDelay,
			MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		},
		AwaitResponse:  cfg.AwaitResponse,
		SourceLanguage: cfg.SourceLanguage,
		TargetLanguage: cfg.TargetLanguage,
	}
}

func ProvideDialer(cfg *Config) channel.Dialer {
	return channel.WebsocketDialer{
		Dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.DialTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

func ProvideTranslator(lc fx.Lifecycle, cfg *Config, hub *events.Hub, dialer channel.Dialer, logger *slog.Logger) *translator.Service {
	svc := translator.NewService(translatorConfig(cfg), hub, dialer, clock.New(), logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			svc.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			svc.Stop()
			return nil
		},
	})
	return svc
}

var TranslatorModule = fx.Options(
	fx.Provide(
		ProvideDialer,
		ProvideTranslator,
	),
)
