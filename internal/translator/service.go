package translator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/voice-translator/internal/channel"
	"github.com/eleven-am/voice-translator/internal/events"
	"github.com/eleven-am/voice-translator/internal/processor"
	"github.com/eleven-am/voice-translator/internal/queue"
	"github.com/eleven-am/voice-translator/internal/shared"
	"github.com/eleven-am/voice-translator/internal/transport"
)

// EventHub is the part of events.Hub the service publishes to and reads
// error flags from.
type EventHub interface {
	events.Publisher
	LastError(ch transport.Channel) (events.Event, bool)
	ClearError(ch transport.Channel) bool
}

type Languages struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Transcription is the result of one transcribe call. Speech is false when
// the backend stayed silent for the whole reply window. Error carries a
// failure the backend reported.
type Transcription struct {
	Text   string `json:"text"`
	Speech bool   `json:"speech"`
	Error  string `json:"error,omitempty"`
}

type ChannelStatus struct {
	State     string `json:"state"`
	Listeners int    `json:"listeners"`
	Dials     uint64 `json:"dials"`
}

type Status struct {
	Processing  bool                                `json:"processing"`
	State       string                              `json:"state"`
	QueueLength int                                 `json:"queue_length"`
	Languages   Languages                           `json:"languages"`
	Channels    map[transport.Channel]ChannelStatus `json:"channels"`
	Errors      map[transport.Channel]events.Event  `json:"errors,omitempty"`
}

// Service wires one connection per channel to the translate queue and its
// processor, and is the surface collaborators drive.
type Service struct {
	cfg    Config
	hub    EventHub
	clock  clock.Clock
	logger *slog.Logger

	managers map[transport.Channel]*channel.Manager
	queue    *queue.Queue
	proc     *processor.Processor

	langMu    sync.RWMutex
	languages Languages

	transcribeMu sync.Mutex

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
	unsubs    []func()
}

func NewService(cfg Config, hub EventHub, dialer channel.Dialer, clk clock.Clock, logger *slog.Logger) *Service {
	cfg = cfg.withDefaults()
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:      cfg,
		hub:      hub,
		clock:    clk,
		logger:   logger.With("component", "translator"),
		managers: make(map[transport.Channel]*channel.Manager, 2),
		queue:    queue.New(cfg.MaxQueueSize),
		languages: Languages{
			Source: cfg.SourceLanguage,
			Target: cfg.TargetLanguage,
		},
		stop: make(chan struct{}),
	}

	for _, ch := range []transport.Channel{transport.ChannelTranslate, transport.ChannelTranscribe} {
		s.managers[ch] = channel.NewManager(channel.Config{
			Channel:     ch,
			URL:         transport.ChannelURL(cfg.Scheme, cfg.APIBase, ch),
			Dialer:      dialer,
			DialTimeout: cfg.DialTimeout,
			Events:      hub,
			Logger:      logger,
		})
	}

	s.proc = processor.New(processor.Config{
		Channel:       transport.ChannelTranslate,
		Queue:         s.queue,
		Conn:          s.managers[transport.ChannelTranslate],
		Clock:         clk,
		Policy:        cfg.Policy,
		AwaitResponse: cfg.AwaitResponse,
		Events:        hub,
		Logger:        logger,
	})

	return s
}

// Start registers the reply listeners and the staleness janitor.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		s.unsubs = append(s.unsubs,
			s.managers[transport.ChannelTranslate].OnMessage(s.handleTranslateReply),
			s.managers[transport.ChannelTranscribe].OnMessage(s.handleTranscribeReply),
		)

		s.wg.Add(1)
		go s.janitorLoop()

		s.logger.Info("translator started",
			"translate_url", transport.ChannelURL(s.cfg.Scheme, s.cfg.APIBase, transport.ChannelTranslate),
			"max_queue_size", s.cfg.MaxQueueSize,
			"stale_after", s.cfg.StaleAfter,
		)
	})
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()

		for _, unsub := range s.unsubs {
			unsub()
		}
		s.proc.Close()
		for ch, m := range s.managers {
			if err := m.Close(); err != nil {
				s.logger.Warn("failed to close channel", "channel", ch, "error", err)
			}
		}
		s.logger.Info("translator stopped")
	})
}

// Enqueue queues a translation request. Empty languages fall back to the
// current language context.
func (s *Service) Enqueue(text, sourceLanguage, targetLanguage string) (queue.Request, error) {
	if strings.TrimSpace(text) == "" {
		return queue.Request{}, fmt.Errorf("%w: text is required", shared.ErrInvalidRequest)
	}

	langs := s.Languages()
	if src := shared.NormalizeLanguage(sourceLanguage); src != "" {
		langs.Source = src
	}
	if tgt := shared.NormalizeLanguage(targetLanguage); tgt != "" {
		langs.Target = tgt
	}

	req := queue.NewRequest(text, langs.Source, langs.Target, s.clock.Now())
	if evicted, ok := s.queue.Enqueue(req); ok {
		s.logger.Warn("queue full, dropped oldest request", "request_id", evicted.ID, "waited", evicted.Age(s.clock.Now()))
		s.hub.Publish(events.Event{
			Channel:   transport.ChannelTranslate,
			Kind:      events.KindQueue,
			RequestID: evicted.ID,
			Message:   "evicted",
		})
	}

	s.logger.Debug("request queued", "request_id", req.ID, "queue_length", s.queue.Len())
	return req, nil
}

func (s *Service) TriggerProcessing() {
	s.proc.Trigger()
}

func (s *Service) Languages() Languages {
	s.langMu.RLock()
	defer s.langMu.RUnlock()
	return s.languages
}

// SetLanguages updates the language context. Queued requests are dropped
// only when a value actually changed. It reports whether it did.
func (s *Service) SetLanguages(sourceLanguage, targetLanguage string) (bool, error) {
	src := shared.NormalizeLanguage(sourceLanguage)
	tgt := shared.NormalizeLanguage(targetLanguage)
	if src == "" && tgt == "" {
		return false, fmt.Errorf("%w: source or target language is required", shared.ErrInvalidRequest)
	}

	s.langMu.Lock()
	next := s.languages
	if src != "" {
		next.Source = src
	}
	if tgt != "" {
		next.Target = tgt
	}
	changed := next != s.languages
	s.languages = next
	s.langMu.Unlock()

	if changed {
		s.logger.Info("language context changed", "source", next.Source, "target", next.Target)
		s.OnLanguageContextChanged()
	}
	return changed, nil
}

func (s *Service) OnLanguageContextChanged() int {
	return s.proc.ContextChanged()
}

func (s *Service) Reset() {
	s.proc.Reset()
}

// OnMessage registers a listener for raw inbound frames on a channel.
func (s *Service) OnMessage(ch transport.Channel, listener transport.Listener) (func(), error) {
	m, ok := s.managers[ch]
	if !ok {
		return nil, fmt.Errorf("%w: unknown channel %q", shared.ErrInvalidRequest, ch)
	}
	return m.OnMessage(listener), nil
}

// Transcribe sends one audio clip and waits for the backend's reply.
// Transcriptions are serialized since replies carry no correlation id. The
// backend only answers when it hears speech, so a reply window that closes
// without a frame is a silent clip rather than a failure.
func (s *Service) Transcribe(ctx context.Context, language string, audio []byte) (Transcription, error) {
	if len(audio) == 0 {
		return Transcription{}, fmt.Errorf("%w: audio is required", shared.ErrInvalidRequest)
	}
	language = shared.NormalizeLanguage(language)
	if language == "" {
		language = s.Languages().Source
	}

	meta, err := transport.EncodeTranscribeMetadata(language)
	if err != nil {
		return Transcription{}, fmt.Errorf("%w: %v", shared.ErrProcessingFailure, err)
	}

	s.transcribeMu.Lock()
	defer s.transcribeMu.Unlock()

	// Frames that land before this call's audio goes out answer an earlier
	// call that already gave up on them.
	var sending atomic.Bool
	m := s.managers[transport.ChannelTranscribe]
	replies := make(chan transport.Frame, 1)
	unsubscribe := m.OnMessage(func(frame transport.Frame) {
		if !sending.Load() {
			s.logger.Debug("dropping late transcription reply", "bytes", len(frame.Data))
			return
		}
		select {
		case replies <- frame:
		default:
		}
	})
	defer unsubscribe()

	window := s.proc.Policy().SendTimeout
	timer := s.clock.Timer(window)
	defer timer.Stop()

	if err := m.EnsureReady(ctx); err != nil {
		return Transcription{}, s.transcribeFailed(err)
	}
	sending.Store(true)
	err = m.SendFrames(ctx,
		transport.Frame{Type: transport.FrameText, Data: meta},
		transport.Frame{Type: transport.FrameBinary, Data: audio},
	)
	if err != nil {
		return Transcription{}, s.transcribeFailed(err)
	}

	select {
	case frame := <-replies:
		reply, err := transport.DecodeReply(frame.Data)
		if err != nil {
			text := string(frame.Data)
			return Transcription{Text: text, Speech: text != ""}, nil
		}
		if reply.IsError() {
			return Transcription{Error: reply.Error}, fmt.Errorf("%w: %s", shared.ErrProcessingFailure, reply.Error)
		}
		return Transcription{Text: reply.Message, Speech: reply.Message != ""}, nil
	case <-timer.C:
		s.logger.Info("no speech detected", "language", language, "bytes", len(audio), "window", window)
		return Transcription{}, nil
	case <-ctx.Done():
		return Transcription{}, ctx.Err()
	}
}

func (s *Service) transcribeFailed(err error) error {
	s.logger.Error("transcription failed", "error", err)
	s.hub.Publish(events.NewError(transport.ChannelTranscribe, err, events.MessageProcessingFailed))
	return err
}

func (s *Service) ClearError(ch transport.Channel) bool {
	return s.hub.ClearError(ch)
}

func (s *Service) Status() Status {
	status := Status{
		Processing:  s.proc.Processing(),
		State:       s.proc.State().String(),
		QueueLength: s.queue.Len(),
		Languages:   s.Languages(),
		Channels:    make(map[transport.Channel]ChannelStatus, len(s.managers)),
	}

	for ch, m := range s.managers {
		status.Channels[ch] = ChannelStatus{
			State:     m.State().String(),
			Listeners: m.ListenerCount(),
			Dials:     m.Dials(),
		}
		if evt, ok := s.hub.LastError(ch); ok {
			if status.Errors == nil {
				status.Errors = make(map[transport.Channel]events.Event)
			}
			status.Errors[ch] = evt
		}
	}
	return status
}

// PruneStale drops requests that waited longer than the configured bound.
func (s *Service) PruneStale() int {
	removed := s.queue.PruneStale(s.clock.Now(), s.cfg.StaleAfter)
	if removed > 0 {
		s.logger.Info("pruned stale requests", "removed", removed, "max_age", s.cfg.StaleAfter)
		s.hub.Publish(events.Event{
			Channel: transport.ChannelTranslate,
			Kind:    events.KindQueue,
			Message: fmt.Sprintf("pruned %d stale requests", removed),
		})
	}
	return removed
}

func (s *Service) janitorLoop() {
	defer s.wg.Done()

	ticker := s.clock.Ticker(s.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.PruneStale()
		}
	}
}

func (s *Service) handleTranslateReply(frame transport.Frame) {
	s.publishReply(transport.ChannelTranslate, frame)

	if s.cfg.AwaitResponse {
		s.proc.Acknowledge()
	}
	if s.queue.Len() > 0 {
		s.proc.Continue()
	}
}

func (s *Service) handleTranscribeReply(frame transport.Frame) {
	s.publishReply(transport.ChannelTranscribe, frame)
}

func (s *Service) publishReply(ch transport.Channel, frame transport.Frame) {
	evt := events.Event{
		Channel: ch,
		Kind:    events.KindReply,
		Payload: string(frame.Data),
	}

	if reply, err := transport.DecodeReply(frame.Data); err == nil && reply.IsError() {
		s.logger.Warn("backend returned an error", "channel", ch, "error", reply.Error)
		evt.Kind = events.KindError
		evt.Code = shared.CodeProcessingFailure
		evt.Message = reply.Error
	}
	s.hub.Publish(evt)
}
