package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eleven-am/voice-translator/internal/events"
)

const sseKeepAliveInterval = 30 * time.Second

// eventStream writes hub events to a server-sent events response.
type eventStream struct {
	writer    http.ResponseWriter
	flusher   http.Flusher
	keepAlive time.Duration
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, http.ErrNotSupported
	}
	return &eventStream{
		writer:    w,
		flusher:   flusher,
		keepAlive: sseKeepAliveInterval,
	}, nil
}

// Run forwards events until the stream closes or ctx ends. A nil filter
// forwards everything.
func (s *eventStream) Run(ctx context.Context, stream <-chan events.Event, filter func(events.Event) bool) error {
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-stream:
			if !ok {
				return nil
			}
			if filter != nil && !filter(evt) {
				continue
			}
			if err := s.writeEvent(evt); err != nil {
				return err
			}
		case <-ticker.C:
			if err := s.writeKeepAlive(); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *eventStream) writeEvent(evt events.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	if _, err := s.writer.Write([]byte("event: " + string(evt.Kind) + "\ndata: ")); err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	if _, err := s.writer.Write([]byte("\n\n")); err != nil {
		return err
	}

	s.flusher.Flush()
	return nil
}

func (s *eventStream) writeKeepAlive() error {
	if _, err := s.writer.Write([]byte(":keepalive\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
