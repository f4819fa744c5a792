package translator

import (
	"time"

	"github.com/eleven-am/voice-translator/internal/processor"
	"github.com/eleven-am/voice-translator/internal/queue"
	"github.com/eleven-am/voice-translator/internal/shared"
)

const (
	defaultScheme        = "wss"
	defaultPruneInterval = time.Minute
)

type Config struct {
	Scheme         string
	APIBase        string
	DialTimeout    time.Duration
	MaxQueueSize   int
	StaleAfter     time.Duration
	PruneInterval  time.Duration
	Policy         processor.RetryPolicy
	AwaitResponse  bool
	SourceLanguage string
	TargetLanguage string
}

func (c Config) withDefaults() Config {
	if c.Scheme == "" {
		c.Scheme = defaultScheme
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = queue.DefaultMaxSize
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = queue.DefaultMaxAge
	}
	if c.PruneInterval <= 0 {
		c.PruneInterval = defaultPruneInterval
	}
	c.SourceLanguage = shared.NormalizeLanguage(c.SourceLanguage)
	if c.SourceLanguage == "" {
		c.SourceLanguage = shared.DefaultSourceLanguage
	}
	c.TargetLanguage = shared.NormalizeLanguage(c.TargetLanguage)
	if c.TargetLanguage == "" {
		c.TargetLanguage = shared.DefaultTargetLanguage
	}
	return c
}
