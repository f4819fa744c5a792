package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/voice-translator/internal/transport"
	"github.com/redis/go-redis/v9"
)

func TestEventChannel(t *testing.T) {
	if got := EventChannel(transport.ChannelTranslate); got != "translator:translate:events" {
		t.Errorf("unexpected channel %s", got)
	}
}

func TestRedisSink_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, EventChannel(transport.ChannelTranslate))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe error: %v", err)
	}

	sink := NewRedisSink(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := sink.Publish(ctx, Event{
		Channel:   transport.ChannelTranslate,
		Kind:      KindReply,
		Payload:   `{"message":"hola"}`,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("publish error: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive error: %v", err)
	}

	var evt Event
	if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if evt.Kind != KindReply {
		t.Errorf("expected reply kind, got %s", evt.Kind)
	}
	if evt.Payload != `{"message":"hola"}` {
		t.Errorf("unexpected payload %s", evt.Payload)
	}
}

func TestRedisSink_PublishError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	sink := NewRedisSink(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := sink.Publish(ctx, Event{Channel: transport.ChannelTranscribe, Kind: KindState}); err == nil {
		t.Error("expected error when redis is down")
	}
}
