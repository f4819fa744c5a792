package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/voice-translator/internal/events"
	"github.com/eleven-am/voice-translator/internal/queue"
	"github.com/eleven-am/voice-translator/internal/shared"
	"github.com/eleven-am/voice-translator/internal/transport"
)

// Connection is what the processor needs from a channel manager.
type Connection interface {
	EnsureReady(ctx context.Context) error
	IsOpen() bool
	Send(ctx context.Context, payload []byte) error
	Close() error
}

type State int

const (
	StateIdle State = iota
	StateProcessing
	StateAwaitingAck
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateAwaitingAck:
		return "awaiting_ack"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeSent
	OutcomeSuccess
	OutcomeSendFailure
	OutcomeTimeout
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSent:
		return "sent"
	case OutcomeSuccess:
		return "success"
	case OutcomeSendFailure:
		return "send_failure"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Config struct {
	Channel transport.Channel
	Queue   *queue.Queue
	Conn    Connection
	Clock   clock.Clock
	Policy  RetryPolicy
	// AwaitResponse keeps an attempt in flight after the send until
	// Acknowledge is called or the timeout guard fires.
	AwaitResponse bool
	Events        events.Publisher
	Logger        *slog.Logger
}

type attempt struct {
	request queue.Request
	cancel  context.CancelFunc
	guard   *clock.Timer
	settled bool
	outcome Outcome
}

// Processor drains a queue one request at a time over a single connection.
type Processor struct {
	channel       transport.Channel
	queue         *queue.Queue
	conn          Connection
	clock         clock.Clock
	policy        RetryPolicy
	awaitResponse bool
	events        events.Publisher
	logger        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	current  *attempt
	retry    *clock.Timer
	failures int
	followUp bool
	closed   bool
}

func New(cfg Config) *Processor {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		channel:       cfg.Channel,
		queue:         cfg.Queue,
		conn:          cfg.Conn,
		clock:         cfg.Clock,
		policy:        normalizePolicy(cfg.Policy),
		awaitResponse: cfg.AwaitResponse,
		events:        cfg.Events,
		logger:        cfg.Logger.With("component", "processor", "channel", cfg.Channel),
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (p *Processor) Policy() RetryPolicy {
	return p.policy
}

func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Processing reports whether a cycle is underway.
func (p *Processor) Processing() bool {
	return p.State() != StateIdle
}

// Trigger starts a cycle in the background.
func (p *Processor) Trigger() {
	go p.Process(p.ctx)
}

// Continue starts a cycle now, or right after the attempt in flight succeeds
// when one is underway. Failed attempts already schedule their own retry.
func (p *Processor) Continue() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.state != StateIdle {
		p.followUp = true
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	go p.Process(p.ctx)
}

// Process runs one cycle: it sends the front request and returns how the
// attempt ended. It is a no-op while another cycle is underway or the
// queue is empty.
func (p *Processor) Process(ctx context.Context) Outcome {
	p.mu.Lock()
	if p.closed || p.state != StateIdle {
		p.mu.Unlock()
		return OutcomeSkipped
	}
	req, ok := p.queue.DequeueFront()
	if !ok {
		p.mu.Unlock()
		return OutcomeSkipped
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a := &attempt{request: req, cancel: cancel}
	p.current = a
	p.state = StateProcessing
	p.mu.Unlock()

	p.logger.Debug("processing request", "request_id", req.ID, "waited", req.Age(p.clock.Now()))

	if outcome, stale := p.superseded(a); stale {
		return outcome
	}
	if err := p.conn.EnsureReady(ctx); err != nil {
		return p.fail(a, err)
	}

	payload, err := transport.EncodeTranslateRequest(req.Text, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		return p.fail(a, fmt.Errorf("%w: %v", shared.ErrProcessingFailure, err))
	}

	if !p.conn.IsOpen() {
		return p.fail(a, shared.ErrConnectionUnavailable)
	}

	p.mu.Lock()
	if p.current != a {
		outcome := a.outcome
		p.mu.Unlock()
		return outcome
	}
	a.guard = p.clock.AfterFunc(p.policy.SendTimeout, func() { p.expire(a) })
	p.state = StateAwaitingAck
	p.mu.Unlock()

	if err := p.conn.Send(ctx, payload); err != nil {
		return p.fail(a, err)
	}

	// A reply may already have acknowledged the attempt; anything else that
	// settled it means the send no longer counts.
	if outcome, stale := p.superseded(a); stale && outcome != OutcomeSuccess {
		return outcome
	}
	p.events.Publish(events.Event{
		Channel:   p.channel,
		Kind:      events.KindSent,
		RequestID: req.ID,
	})

	if p.awaitResponse {
		p.mu.Lock()
		defer p.mu.Unlock()
		if a.settled {
			return a.outcome
		}
		return OutcomeSent
	}
	return p.succeed(a)
}

// superseded reports the outcome of a when it is no longer the live attempt,
// either because it already settled or because Reset abandoned it.
func (p *Processor) superseded(a *attempt) (Outcome, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != a || a.settled {
		return a.outcome, true
	}
	return 0, false
}

// Acknowledge completes the attempt awaiting a reply. It reports false when
// nothing was awaiting one.
func (p *Processor) Acknowledge() bool {
	p.mu.Lock()
	a := p.current
	if a == nil || p.state != StateAwaitingAck {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	return p.succeed(a) == OutcomeSuccess
}

// ContextChanged drops every queued request. An attempt already in flight
// runs to its own outcome; with the queue empty it is not retried.
func (p *Processor) ContextChanged() int {
	cleared := p.queue.Clear()
	if cleared > 0 {
		p.logger.Info("language context changed, queue cleared", "cleared", cleared)
	}
	p.events.Publish(events.Event{
		Channel: p.channel,
		Kind:    events.KindQueue,
		Message: fmt.Sprintf("cleared %d queued requests", cleared),
	})
	return cleared
}

// Reset abandons the current attempt, drops the queue and any pending retry,
// and closes the connection.
func (p *Processor) Reset() {
	p.mu.Lock()
	if a := p.current; a != nil {
		a.settled = true
		a.outcome = OutcomeCanceled
		a.cancel()
		if a.guard != nil {
			a.guard.Stop()
		}
	}
	p.current = nil
	p.state = StateIdle
	p.failures = 0
	p.followUp = false
	p.stopRetryLocked()
	p.mu.Unlock()

	cleared := p.queue.Clear()
	if err := p.conn.Close(); err != nil {
		p.logger.Warn("failed to close connection on reset", "error", err)
	}

	p.logger.Info("processor reset", "cleared", cleared)
	p.events.Publish(events.Event{
		Channel: p.channel,
		Kind:    events.KindQueue,
		Message: "reset",
	})
}

func (p *Processor) Close() {
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.current != nil && p.current.guard != nil {
		p.current.guard.Stop()
	}
	p.stopRetryLocked()
}

func (p *Processor) succeed(a *attempt) Outcome {
	p.mu.Lock()
	if !p.settleLocked(a, OutcomeSuccess) {
		outcome := a.outcome
		p.mu.Unlock()
		return outcome
	}
	p.failures = 0
	next := p.followUp && !p.closed && p.queue.Len() > 0
	p.followUp = false
	p.mu.Unlock()

	p.logger.Debug("request delivered", "request_id", a.request.ID)
	if next {
		go p.Process(p.ctx)
	}
	return OutcomeSuccess
}

func (p *Processor) fail(a *attempt, err error) Outcome {
	p.mu.Lock()
	if !p.settleLocked(a, OutcomeSendFailure) {
		outcome := a.outcome
		p.mu.Unlock()
		return outcome
	}
	p.failures++
	retry := p.scheduleRetryLocked(p.policy.FailureRetryDelay)
	p.mu.Unlock()

	p.logger.Error("translation request failed", "request_id", a.request.ID, "error", err, "retry", retry)

	evt := events.NewError(p.channel, err, events.MessageProcessingFailed)
	evt.RequestID = a.request.ID
	p.events.Publish(evt)
	return OutcomeSendFailure
}

func (p *Processor) expire(a *attempt) {
	p.mu.Lock()
	if !p.settleLocked(a, OutcomeTimeout) {
		p.mu.Unlock()
		return
	}
	p.failures++
	retry := p.scheduleRetryLocked(p.policy.TimeoutRetryDelay)
	p.mu.Unlock()

	p.logger.Warn("translation request timed out", "request_id", a.request.ID, "timeout", p.policy.SendTimeout, "retry", retry)

	err := fmt.Errorf("request %s: %w", a.request.ID, shared.ErrSendTimeout)
	evt := events.NewError(p.channel, err, events.MessageTimedOut)
	evt.RequestID = a.request.ID
	p.events.Publish(evt)
}

// settleLocked records the outcome of a if it is still the attempt in
// flight. The first outcome wins.
func (p *Processor) settleLocked(a *attempt, outcome Outcome) bool {
	if p.current != a || a.settled {
		return false
	}
	a.settled = true
	a.outcome = outcome
	if a.guard != nil {
		a.guard.Stop()
	}
	p.current = nil
	p.state = StateIdle
	if outcome != OutcomeSuccess {
		p.followUp = false
	}
	return true
}

func (p *Processor) scheduleRetryLocked(delay time.Duration) bool {
	if p.closed || p.queue.Len() == 0 {
		return false
	}
	if limit := p.policy.MaxConsecutiveFailures; limit > 0 && p.failures >= limit {
		p.logger.Warn("retry limit reached, waiting for next trigger", "failures", p.failures)
		return false
	}

	p.stopRetryLocked()
	p.retry = p.clock.AfterFunc(delay, func() {
		go p.Process(p.ctx)
	})
	return true
}

func (p *Processor) stopRetryLocked() {
	if p.retry != nil {
		p.retry.Stop()
		p.retry = nil
	}
}
