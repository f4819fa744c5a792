package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/eleven-am/voice-translator/internal/events"
	"github.com/eleven-am/voice-translator/internal/shared"
	"github.com/eleven-am/voice-translator/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	defaultDialTimeout = 10 * time.Second
)

type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Config struct {
	Channel     transport.Channel
	URL         string
	Dialer      Dialer
	DialTimeout time.Duration
	Events      events.Publisher
	Logger      *slog.Logger
}

type dialAttempt struct {
	done chan struct{}
	once sync.Once
	err  error
}

func (a *dialAttempt) resolve(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

type listenerEntry struct {
	id uint64
	fn transport.Listener
}

// Manager owns the single websocket connection of one channel. It dials
// lazily, lets any number of callers wait for readiness on one attempt, and
// fans inbound frames out to registered listeners.
type Manager struct {
	channel     transport.Channel
	url         string
	dialer      Dialer
	dialTimeout time.Duration
	events      events.Publisher
	logger      *slog.Logger

	mu           sync.Mutex
	state        State
	conn         Conn
	generation   uint64
	pending      *dialAttempt
	dials        uint64
	listeners    []listenerEntry
	nextListener uint64

	writeMu sync.Mutex
}

func NewManager(cfg Config) *Manager {
	if cfg.Dialer == nil {
		cfg.Dialer = WebsocketDialer{}
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Manager{
		channel:     cfg.Channel,
		url:         cfg.URL,
		dialer:      cfg.Dialer,
		dialTimeout: cfg.DialTimeout,
		events:      cfg.Events,
		logger:      cfg.Logger.With("component", "channel", "channel", cfg.Channel),
		state:       StateUninitialized,
	}
}

func (m *Manager) Channel() transport.Channel {
	return m.channel
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsOpen() bool {
	return m.State() == StateOpen
}

// Dials reports how many connection attempts have been started.
func (m *Manager) Dials() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// EnsureReady returns once the connection is open. A dial is started only
// when none is underway; concurrent callers share it. A failed dial leaves
// the manager closed so the next call starts over.
func (m *Manager) EnsureReady(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.state == StateOpen {
		m.mu.Unlock()
		return nil
	}
	if m.state != StateConnecting {
		m.connectLocked()
	}
	attempt := m.pending
	m.mu.Unlock()

	select {
	case <-attempt.done:
		return attempt.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) connectLocked() {
	m.generation++
	attempt := &dialAttempt{done: make(chan struct{})}
	m.pending = attempt
	m.state = StateConnecting
	m.dials++

	go m.dial(m.generation, attempt)
}

func (m *Manager) dial(gen uint64, attempt *dialAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	defer cancel()

	m.logger.Debug("connecting", "url", m.url)
	conn, err := m.dialer.Dial(ctx, m.url)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		attempt.resolve(fmt.Errorf("%w: closed while connecting", shared.ErrConnectionUnavailable))
		return
	}

	if err != nil {
		m.state = StateClosed
		m.pending = nil
		m.mu.Unlock()

		err = fmt.Errorf("%w: %v", shared.ErrTransport, err)
		m.logger.Error("websocket connect failed", "error", err)
		m.events.Publish(events.NewError(m.channel, err, events.MessageConnectionFailed))
		attempt.resolve(err)
		return
	}

	m.state = StateOpen
	m.conn = conn
	m.pending = nil
	m.mu.Unlock()

	m.logger.Info("connected", "url", m.url)
	attempt.resolve(nil)
	m.publishState(StateOpen)

	done := make(chan struct{})
	go m.readPump(gen, conn, done)
	go m.pingPump(conn, done)
}

func (m *Manager) readPump(gen uint64, conn Conn, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			m.handleReadError(gen, conn, err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		frame := transport.Frame{Type: transport.FrameText, Data: data}
		if messageType == websocket.BinaryMessage {
			frame.Type = transport.FrameBinary
		}
		m.dispatch(frame)
	}
}

func (m *Manager) pingPump(conn Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (m *Manager) handleReadError(gen uint64, conn Conn, err error) {
	m.mu.Lock()
	current := gen == m.generation && m.conn == conn
	if current {
		m.state = StateClosed
		m.conn = nil
	}
	m.mu.Unlock()

	_ = conn.Close()
	if !current {
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) &&
		(closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
		m.logger.Info("disconnected", "code", closeErr.Code)
		m.publishState(StateClosed)
		return
	}

	err = fmt.Errorf("%w: %v", shared.ErrTransport, err)
	m.logger.Error("websocket read error", "error", err)
	m.events.Publish(events.NewError(m.channel, err, events.MessageConnectionFailed))
}

// OnMessage registers a listener for inbound frames and returns a func that
// removes it. Removal is idempotent and safe from inside a listener.
func (m *Manager) OnMessage(fn transport.Listener) func() {
	m.mu.Lock()
	m.nextListener++
	id := m.nextListener
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.listeners = slices.DeleteFunc(m.listeners, func(l listenerEntry) bool {
				return l.id == id
			})
			m.mu.Unlock()
		})
	}
}

func (m *Manager) ListenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// dispatch delivers a frame to the listeners registered when it started.
func (m *Manager) dispatch(frame transport.Frame) {
	m.mu.Lock()
	snapshot := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, l := range snapshot {
		l.fn(frame)
	}
}

// Send writes one text frame. It fails with shared.ErrConnectionUnavailable
// unless the connection is open at the moment of the call.
func (m *Manager) Send(ctx context.Context, payload []byte) error {
	return m.SendFrames(ctx, transport.Frame{Type: transport.FrameText, Data: payload})
}

func (m *Manager) SendBinary(ctx context.Context, payload []byte) error {
	return m.SendFrames(ctx, transport.Frame{Type: transport.FrameBinary, Data: payload})
}

// SendFrames writes frames back to back with no other writer in between.
func (m *Manager) SendFrames(ctx context.Context, frames ...transport.Frame) error {
	m.mu.Lock()
	if m.state != StateOpen || m.conn == nil {
		m.mu.Unlock()
		return shared.ErrConnectionUnavailable
	}
	conn, gen := m.conn, m.generation
	m.mu.Unlock()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}

		deadline := time.Now().Add(writeWait)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		_ = conn.SetWriteDeadline(deadline)

		messageType := websocket.TextMessage
		if frame.Type == transport.FrameBinary {
			messageType = websocket.BinaryMessage
		}

		if err := conn.WriteMessage(messageType, frame.Data); err != nil {
			err = fmt.Errorf("%w: %v", shared.ErrTransport, err)
			m.markBroken(gen, conn, err)
			return err
		}
	}
	return nil
}

func (m *Manager) markBroken(gen uint64, conn Conn, err error) {
	m.mu.Lock()
	current := gen == m.generation && m.conn == conn
	if current {
		m.state = StateClosed
		m.conn = nil
	}
	m.mu.Unlock()

	_ = conn.Close()
	if current {
		m.logger.Error("websocket write error", "error", err)
		m.events.Publish(events.NewError(m.channel, err, events.MessageConnectionFailed))
	}
}

// Close tears the connection down. A dial in progress is abandoned and its
// waiters receive shared.ErrConnectionUnavailable.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.state != StateOpen && m.state != StateConnecting {
		m.mu.Unlock()
		return nil
	}
	m.generation++
	gen := m.generation
	conn := m.conn
	pending := m.pending
	m.state = StateClosing
	m.conn = nil
	m.pending = nil
	m.mu.Unlock()

	if pending != nil {
		pending.resolve(fmt.Errorf("%w: closed while connecting", shared.ErrConnectionUnavailable))
	}

	var err error
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = conn.Close()
	}

	m.mu.Lock()
	if m.generation == gen {
		m.state = StateClosed
	}
	m.mu.Unlock()

	m.logger.Info("connection closed")
	m.publishState(StateClosed)
	return err
}

func (m *Manager) publishState(s State) {
	m.events.Publish(events.Event{
		Channel: m.channel,
		Kind:    events.KindState,
		Message: s.String(),
	})
}
