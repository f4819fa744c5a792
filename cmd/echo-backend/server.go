package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/voice-translator/internal/transport"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 25 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type backend struct {
	delay  time.Duration
	logger *slog.Logger
}

func newServer(delay time.Duration, logger *slog.Logger) *echo.Echo {
	b := &backend{delay: delay, logger: logger.With("component", "echo_backend")}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/ws/translate", b.serve(b.translate))
	e.GET("/ws/transcribe", b.serve(b.transcribeSession))
	return e
}

type session func(conn *websocket.Conn, messageType int, data []byte) *transport.Reply

func (b *backend) serve(newSession func() session) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			b.logger.Error("websocket upgrade failed", "error", err)
			return nil
		}
		defer conn.Close()
		conn.SetReadLimit(maxMessageSize)

		path := c.Request().URL.Path
		b.logger.Info("client connected", "path", path)
		handle := newSession()

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					b.logger.Warn("read error", "path", path, "error", err)
				}
				b.logger.Info("client disconnected", "path", path)
				return nil
			}

			reply := handle(conn, messageType, data)
			if reply == nil {
				continue
			}
			if b.delay > 0 {
				time.Sleep(b.delay)
			}
			if err := writeReply(conn, *reply); err != nil {
				b.logger.Warn("write error", "path", path, "error", err)
				return nil
			}
		}
	}
}

func (b *backend) translate() session {
	return func(_ *websocket.Conn, messageType int, data []byte) *transport.Reply {
		if messageType != websocket.TextMessage {
			return &transport.Reply{Error: "expected a text frame"}
		}

		var req transport.TranslateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return &transport.Reply{Error: "invalid request"}
		}
		if strings.TrimSpace(req.Text) == "" {
			return &transport.Reply{Error: "text is required"}
		}

		b.logger.Debug("translate", "source", req.SourceLanguage, "target", req.TargetLanguage)
		return &transport.Reply{
			Message: fmt.Sprintf("[%s->%s] %s", req.SourceLanguage, req.TargetLanguage, req.Text),
		}
	}
}

// transcribeSession expects a metadata text frame before each audio frame.
func (b *backend) transcribeSession() session {
	var language string
	return func(_ *websocket.Conn, messageType int, data []byte) *transport.Reply {
		if messageType == websocket.TextMessage {
			var meta transport.TranscribeMetadata
			if err := json.Unmarshal(data, &meta); err != nil || meta.Language == "" {
				return &transport.Reply{Error: "invalid metadata"}
			}
			language = meta.Language
			return nil
		}

		if language == "" {
			return &transport.Reply{Error: "missing language metadata"}
		}
		if silent(data) {
			b.logger.Debug("no speech in clip", "language", language, "bytes", len(data))
			language = ""
			return nil
		}
		reply := &transport.Reply{
			Message: fmt.Sprintf("received %d bytes of %s audio", len(data), language),
		}
		language = ""
		return reply
	}
}

func writeReply(conn *websocket.Conn, reply transport.Reply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// silent reports whether a clip carries no signal at all.
func silent(audio []byte) bool {
	for _, v := range audio {
		if v != 0 {
			return false
		}
	}
	return true
}
