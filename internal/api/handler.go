package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/eleven-am/voice-translator/internal/events"
	"github.com/eleven-am/voice-translator/internal/queue"
	"github.com/eleven-am/voice-translator/internal/shared"
	"github.com/eleven-am/voice-translator/internal/translator"
	"github.com/eleven-am/voice-translator/internal/transport"
	"github.com/labstack/echo/v4"
)

const (
	maxAudioBytes   = 25 << 20
	subscriberQueue = 128
)

// Translator is the collaborator surface the HTTP layer drives.
type Translator interface {
	Enqueue(text, sourceLanguage, targetLanguage string) (queue.Request, error)
	TriggerProcessing()
	SetLanguages(sourceLanguage, targetLanguage string) (bool, error)
	Languages() translator.Languages
	Reset()
	Transcribe(ctx context.Context, language string, audio []byte) (translator.Transcription, error)
	Status() translator.Status
	ClearError(ch transport.Channel) bool
}

type EventSource interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

type Handler struct {
	translator Translator
	events     EventSource
	logger     *slog.Logger
}

func NewHandler(t Translator, source EventSource, logger *slog.Logger) *Handler {
	return &Handler{
		translator: t,
		events:     source,
		logger:     logger.With("component", "api"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/translations", h.Translate)
	g.PUT("/languages", h.SetLanguages)
	g.POST("/reset", h.Reset)
	g.POST("/transcriptions", h.Transcribe)
	g.GET("/status", h.Status)
	g.DELETE("/errors/:channel", h.ClearError)
	g.GET("/events", h.Events)
}

// Translate queues text for translation and starts a processing cycle.
// @Summary      Queue a translation
// @Description  Queues text for translation over the translate channel. Missing languages fall back to the current language context. When the queue is full the oldest request is evicted.
// @Tags         translations
// @Accept       json
// @Produce      json
// @Param        request body TranslateRequest true "Text to translate"
// @Success      202  {object}  TranslateResponse
// @Failure      400  {object}  shared.APIError  "Empty text or invalid body"
// @Router       /v1/translations [post]
func (h *Handler) Translate(c echo.Context) error {
	var req TranslateRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	queued, err := h.translator.Enqueue(req.Text, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		return toHTTPError(err)
	}
	h.translator.TriggerProcessing()

	return c.JSON(http.StatusAccepted, TranslateResponse{
		ID:             queued.ID,
		SourceLanguage: queued.SourceLanguage,
		TargetLanguage: queued.TargetLanguage,
		QueueLength:    h.translator.Status().QueueLength,
	})
}

// @Summary      Set the language context
// @Description  Replaces the source and target languages. A change drops every queued request.
// @Tags         translations
// @Accept       json
// @Produce      json
// @Param        request body LanguagesRequest true "Language pair"
// @Success      200  {object}  LanguagesResponse
// @Failure      400  {object}  shared.APIError
// @Router       /v1/languages [put]
func (h *Handler) SetLanguages(c echo.Context) error {
	var req LanguagesRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	changed, err := h.translator.SetLanguages(req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, LanguagesResponse{
		Languages: h.translator.Languages(),
		Changed:   changed,
	})
}

// @Summary      Reset the pipeline
// @Description  Abandons the request in flight, clears the queue and closes the translate connection.
// @Tags         translations
// @Success      204
// @Router       /v1/reset [post]
func (h *Handler) Reset(c echo.Context) error {
	h.translator.Reset()
	return c.NoContent(http.StatusNoContent)
}

// Transcribe forwards one audio clip to the transcribe channel.
// @Summary      Transcribe audio
// @Description  Sends the request body as one audio clip. A clip without speech returns an empty text with speech=false.
// @Tags         transcriptions
// @Accept       application/octet-stream
// @Produce      json
// @Param        language query string false "Language of the audio, defaults to the source language"
// @Param        audio body []byte true "Raw audio clip (max 25MB)"
// @Success      200  {object}  TranscriptionResponse
// @Failure      400  {object}  shared.APIError  "Empty audio"
// @Failure      413  {object}  shared.APIError  "Audio too large"
// @Failure      502  {object}  shared.APIError  "Backend reported a failure"
// @Failure      503  {object}  shared.APIError  "Connection unavailable"
// @Router       /v1/transcriptions [post]
func (h *Handler) Transcribe(c echo.Context) error {
	audio, err := io.ReadAll(io.LimitReader(c.Request().Body, maxAudioBytes+1))
	if err != nil {
		return shared.BadRequest("invalid_request", "failed to read audio")
	}
	if len(audio) > maxAudioBytes {
		return shared.NewAPIError("audio_too_large", fmt.Sprintf("audio exceeds %d bytes", maxAudioBytes)).
			ToHTTP(http.StatusRequestEntityTooLarge)
	}

	result, err := h.translator.Transcribe(c.Request().Context(), c.QueryParam("language"), audio)
	if err != nil {
		if result.Error != "" {
			return shared.NewAPIError(shared.CodeProcessingFailure, result.Error).ToHTTP(http.StatusBadGateway)
		}
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, TranscriptionResponse{Text: result.Text, Speech: result.Speech})
}

// @Summary      Pipeline status
// @Description  Reports the processor state, queue length, language context, channel states and any error flags.
// @Tags         status
// @Produce      json
// @Success      200  {object}  translator.Status
// @Router       /v1/status [get]
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.translator.Status())
}

// @Summary      Clear a channel error
// @Description  Drops the error flag raised on a channel.
// @Tags         status
// @Produce      json
// @Param        channel path string true "Channel name" Enums(translate, transcribe)
// @Success      200  {object}  ClearErrorResponse
// @Failure      404  {object}  shared.APIError  "Unknown channel"
// @Router       /v1/errors/{channel} [delete]
func (h *Handler) ClearError(c echo.Context) error {
	ch, ok := transport.ParseChannel(c.Param("channel"))
	if !ok {
		return shared.NotFound("unknown_channel", "unknown channel")
	}
	return c.JSON(http.StatusOK, ClearErrorResponse{Cleared: h.translator.ClearError(ch)})
}

// Events streams hub events as server-sent events. ?channel= narrows the
// stream to one channel.
// @Summary      Event stream
// @Description  Streams sent, reply, queue, state and error events as server-sent events.
// @Tags         status
// @Produce      text/event-stream
// @Param        channel query string false "Only events of this channel" Enums(translate, transcribe)
// @Success      200  {object}  events.Event
// @Failure      404  {object}  shared.APIError  "Unknown channel"
// @Router       /v1/events [get]
func (h *Handler) Events(c echo.Context) error {
	var filter func(events.Event) bool
	if name := c.QueryParam("channel"); name != "" {
		ch, ok := transport.ParseChannel(name)
		if !ok {
			return shared.NotFound("unknown_channel", "unknown channel")
		}
		filter = func(evt events.Event) bool { return evt.Channel == ch }
	}

	stream, err := newEventStream(c.Response())
	if err != nil {
		h.logger.Error("failed to create event stream", "error", err)
		return shared.InternalError("stream_failed", "failed to create event stream")
	}

	sub, cancel := h.events.Subscribe(subscriberQueue)
	defer cancel()

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	h.logger.Info("event stream opened", "remote", c.RealIP())
	_ = stream.Run(c.Request().Context(), sub, filter)
	h.logger.Info("event stream closed", "remote", c.RealIP())
	return nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, shared.ErrInvalidRequest):
		return shared.BadRequest("invalid_request", err.Error())
	case errors.Is(err, shared.ErrSendTimeout):
		return shared.NewAPIError(shared.CodeSendTimeout, "request timed out").ToHTTP(http.StatusGatewayTimeout)
	case errors.Is(err, shared.ErrConnectionUnavailable), errors.Is(err, shared.ErrTransport):
		return shared.ServiceUnavailable(shared.ErrorCode(err), events.MessageConnectionFailed)
	case errors.Is(err, shared.ErrProcessingFailure):
		return shared.NewAPIError(shared.CodeProcessingFailure, events.MessageProcessingFailed).ToHTTP(http.StatusBadGateway)
	default:
		return shared.InternalError("internal_error", "internal error")
	}
}
