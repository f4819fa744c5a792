package bootstrap

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL"   envDefault:"info"`

	APIBase     string        `env:"API_BASE"     envDefault:"localhost:8000"`
	WSScheme    string        `env:"WS_SCHEME"    envDefault:"wss"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"10s"`

	MaxQueueSize  int           `env:"MAX_QUEUE_SIZE" envDefault:"10"`
	StaleAfter    time.Duration `env:"STALE_AFTER"    envDefault:"5m"`
	PruneInterval time.Duration `env:"PRUNE_INTERVAL" envDefault:"1m"`

	SendTimeout            time.Duration `env:"SEND_TIMEOUT"             envDefault:"15s"`
	TimeoutRetryDelay      time.Duration `env:"TIMEOUT_RETRY_DELAY"      envDefault:"500ms"`
	FailureRetryDelay      time.Duration `env:"FAILURE_RETRY_DELAY"      envDefault:"1s"`
	MaxConsecutiveFailures int           `env:"MAX_CONSECUTIVE_FAILURES" envDefault:"0"`
	AwaitResponse          bool          `env:"AWAIT_RESPONSE"           envDefault:"false"`

	SourceLanguage string `env:"SOURCE_LANGUAGE" envDefault:"EN"`
	TargetLanguage string `env:"TARGET_LANGUAGE" envDefault:"ES"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.WSScheme != "ws" && cfg.WSScheme != "wss" {
		return nil, fmt.Errorf("parse config: WS_SCHEME must be ws or wss, got %q", cfg.WSScheme)
	}
	return &cfg, nil
}
