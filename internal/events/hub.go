package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/voice-translator/internal/transport"
)

const (
	sinkTimeout = 2 * time.Second
	sinkBuffer  = 256
)

// Sink receives every event after in-process subscribers. Sinks run on the
// hub's own goroutine, never on the publisher's.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

type Hub struct {
	logger *slog.Logger
	sinks  []Sink

	sinkQueue chan Event
	sinkDone  chan struct{}

	mu      sync.RWMutex
	subs    map[uint64]chan Event
	nextID  uint64
	lastErr map[transport.Channel]Event
	closed  bool
}

func NewHub(logger *slog.Logger, sinks ...Sink) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		logger:  logger.With("component", "event_hub"),
		sinks:   sinks,
		subs:    make(map[uint64]chan Event),
		lastErr: make(map[transport.Channel]Event),
	}
	if len(sinks) > 0 {
		h.sinkQueue = make(chan Event, sinkBuffer)
		h.sinkDone = make(chan struct{})
		go h.runSinks()
	}
	return h
}

func (h *Hub) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if evt.Kind == KindError {
		h.lastErr[evt.Channel] = evt
	}
	for id, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.logger.Warn("subscriber buffer full, dropping event", "subscriber", id, "kind", evt.Kind)
		}
	}
	if h.sinkQueue != nil {
		select {
		case h.sinkQueue <- evt:
		default:
			h.logger.Warn("sink buffer full, dropping event", "kind", evt.Kind)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) runSinks() {
	defer close(h.sinkDone)
	for evt := range h.sinkQueue {
		for _, sink := range h.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			if err := sink.Publish(ctx, evt); err != nil {
				h.logger.Error("failed to publish event to sink", "error", err, "kind", evt.Kind)
			}
			cancel()
		}
	}
}

// Subscribe returns a buffered stream of events and a func that ends the
// subscription. Events are dropped for subscribers that fall behind.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
			h.mu.Unlock()
		})
	}
}

func (h *Hub) LastError(ch transport.Channel) (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	evt, ok := h.lastErr[ch]
	return evt, ok
}

// ClearError drops the error flag for a channel. It reports whether one was set.
func (h *Hub) ClearError(ch transport.Channel) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.lastErr[ch]
	delete(h.lastErr, ch)
	return ok
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription and waits for the sinks to drain events
// already accepted.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	if h.sinkQueue != nil {
		close(h.sinkQueue)
	}
	h.mu.Unlock()

	if h.sinkDone != nil {
		<-h.sinkDone
	}
}
