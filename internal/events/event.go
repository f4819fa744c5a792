package events

import (
	"time"

	"github.com/eleven-am/voice-translator/internal/shared"
	"github.com/eleven-am/voice-translator/internal/transport"
)

type Kind string

const (
	KindError Kind = "error"
	KindSent  Kind = "sent"
	KindReply Kind = "reply"
	KindQueue Kind = "queue"
	KindState Kind = "state"
)

const (
	MessageConnectionFailed = "Can't connect to server. Check your internet and try again."
	MessageTimedOut         = "Translation request timed out"
	MessageProcessingFailed = "An error occurred during translation"
)

type Event struct {
	Channel   transport.Channel `json:"channel"`
	Kind      Kind              `json:"kind"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Payload   string            `json:"payload,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Publisher is the write side of the hub, handed to components that report state.
type Publisher interface {
	Publish(evt Event)
}

func NewError(ch transport.Channel, err error, message string) Event {
	return Event{
		Channel: ch,
		Kind:    KindError,
		Code:    shared.ErrorCode(err),
		Message: message,
	}
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard drops every event.
var Discard Publisher = discard{}
