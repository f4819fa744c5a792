// Command echo-backend is a development stand-in for the translation backend.
// It speaks the same websocket protocol and answers every request with an
// echo of its input.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
)

type config struct {
	Addr       string        `env:"ECHO_ADDR"        envDefault:":8000"`
	ReplyDelay time.Duration `env:"ECHO_REPLY_DELAY" envDefault:"0s"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := env.ParseAs[config]()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	e := newServer(cfg.ReplyDelay, logger)

	go func() {
		logger.Info("echo backend listening", "addr", cfg.Addr)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
