package transport

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Channel string

const (
	ChannelTranslate  Channel = "translate"
	ChannelTranscribe Channel = "transcribe"
)

func (c Channel) String() string {
	return string(c)
}

func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelTranslate, ChannelTranscribe:
		return Channel(s), true
	default:
		return "", false
	}
}

// ChannelURL builds the websocket endpoint for a channel, e.g.
// wss://api.example.com/ws/translate.
func ChannelURL(scheme, base string, ch Channel) string {
	base = strings.TrimSuffix(strings.TrimSpace(base), "/")
	return fmt.Sprintf("%s://%s/ws/%s", scheme, base, ch)
}

type FrameType int

const (
	FrameText FrameType = iota
	FrameBinary
)

// Frame is a single inbound websocket message, delivered verbatim.
type Frame struct {
	Type FrameType
	Data []byte
}

type Listener func(Frame)

type TranslateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

func EncodeTranslateRequest(text, sourceLanguage, targetLanguage string) ([]byte, error) {
	data, err := json.Marshal(TranslateRequest{
		Text:           text,
		SourceLanguage: sourceLanguage,
		TargetLanguage: targetLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("encode translate request: %w", err)
	}
	return data, nil
}

// TranscribeMetadata precedes every binary audio frame on the transcribe channel.
type TranscribeMetadata struct {
	Language string `json:"language"`
}

func EncodeTranscribeMetadata(language string) ([]byte, error) {
	data, err := json.Marshal(TranscribeMetadata{Language: language})
	if err != nil {
		return nil, fmt.Errorf("encode transcribe metadata: %w", err)
	}
	return data, nil
}

// Reply is the backend's answer on either channel.
type Reply struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r Reply) IsError() bool {
	return r.Error != ""
}

func DecodeReply(data []byte) (Reply, error) {
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return r, nil
}
