package translator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/voice-translator/internal/channel"
	"github.com/eleven-am/voice-translator/internal/events"
	"github.com/eleven-am/voice-translator/internal/shared"
	"github.com/eleven-am/voice-translator/internal/transport"
	"github.com/gorilla/websocket"
)

type transcription struct {
	Language string
	Size     int
}

type backend struct {
	mu             sync.Mutex
	translations   []transport.TranslateRequest
	transcriptions []transcription
	replyError     string

	writeMu        sync.Mutex
	transcribeConn *websocket.Conn
}

func (b *backend) write(conn *websocket.Conn, data []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// push writes an unsolicited reply on the open transcribe connection.
func (b *backend) push(t *testing.T, reply transport.Reply) {
	t.Helper()
	b.mu.Lock()
	conn := b.transcribeConn
	b.mu.Unlock()
	if conn == nil {
		t.Fatal("no transcribe connection")
	}
	data, _ := json.Marshal(reply)
	if err := b.write(conn, data); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func silent(audio []byte) bool {
	for _, v := range audio {
		if v != 0 {
			return false
		}
	}
	return true
}

func (b *backend) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		switch r.URL.Path {
		case "/ws/translate":
			b.serveTranslate(conn)
		case "/ws/transcribe":
			b.serveTranscribe(conn)
		}
	}
}

func (b *backend) serveTranslate(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req transport.TranslateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}

		b.mu.Lock()
		b.translations = append(b.translations, req)
		b.mu.Unlock()

		reply, _ := json.Marshal(transport.Reply{Message: req.TargetLanguage + ":" + req.Text})
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}

func (b *backend) serveTranscribe(conn *websocket.Conn) {
	b.mu.Lock()
	b.transcribeConn = conn
	b.mu.Unlock()

	for {
		_, meta, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var md transport.TranscribeMetadata
		if err := json.Unmarshal(meta, &md); err != nil {
			return
		}
		messageType, audio, err := conn.ReadMessage()
		if err != nil || messageType != websocket.BinaryMessage {
			return
		}

		b.mu.Lock()
		b.transcriptions = append(b.transcriptions, transcription{Language: md.Language, Size: len(audio)})
		replyError := b.replyError
		b.mu.Unlock()

		if silent(audio) && replyError == "" {
			continue
		}
		reply := transport.Reply{Message: "heard " + md.Language}
		if replyError != "" {
			reply = transport.Reply{Error: replyError}
		}
		data, _ := json.Marshal(reply)
		if err := b.write(conn, data); err != nil {
			return
		}
	}
}

func (b *backend) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.translations))
	for i, r := range b.translations {
		out[i] = r.Text
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, base string, clk clock.Clock) (*Service, *events.Hub) {
	t.Helper()
	hub := events.NewHub(testLogger())
	svc := NewService(Config{
		Scheme:  "ws",
		APIBase: base,
	}, hub, channel.WebsocketDialer{}, clk, testLogger())
	svc.Start()
	t.Cleanup(func() {
		svc.Stop()
		hub.Close()
	})
	return svc, hub
}

func startBackend(t *testing.T) (*backend, string) {
	t.Helper()
	b := &backend{}
	server := httptest.NewServer(b.handler(t))
	t.Cleanup(server.Close)
	return b, strings.TrimPrefix(server.URL, "http://")
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func waitForEvent(t *testing.T, sub <-chan events.Event, match func(events.Event) bool) events.Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				t.Fatal("event stream closed")
			}
			if match(evt) {
				return evt
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestService_DrainsQueueInOrder(t *testing.T) {
	b, base := startBackend(t)
	svc, hub := newTestService(t, base, nil)

	sub, cancel := hub.Subscribe(64)
	defer cancel()

	for _, text := range []string{"one", "two", "three"} {
		if _, err := svc.Enqueue(text, "", ""); err != nil {
			t.Fatalf("enqueue %s: %v", text, err)
		}
	}
	svc.TriggerProcessing()

	waitFor(t, func() bool { return len(b.texts()) == 3 }, "all requests delivered")

	got := b.texts()
	want := []string{"one", "two", "three"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	replies := 0
	timeout := time.After(2 * time.Second)
	for replies < 3 {
		select {
		case evt := <-sub:
			if evt.Kind == events.KindReply && evt.Channel == transport.ChannelTranslate {
				replies++
			}
		case <-timeout:
			t.Fatalf("expected 3 reply events, got %d", replies)
		}
	}
}

func TestService_EnqueueUsesLanguageContext(t *testing.T) {
	b, base := startBackend(t)
	svc, _ := newTestService(t, base, nil)

	if _, err := svc.SetLanguages("fr", "de"); err != nil {
		t.Fatalf("set languages: %v", err)
	}
	req, err := svc.Enqueue("bonjour", "", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if req.SourceLanguage != "FR" || req.TargetLanguage != "DE" {
		t.Errorf("expected FR->DE, got %s->%s", req.SourceLanguage, req.TargetLanguage)
	}

	override, _ := svc.Enqueue("hola", "es", "")
	if override.SourceLanguage != "ES" || override.TargetLanguage != "DE" {
		t.Errorf("expected ES->DE, got %s->%s", override.SourceLanguage, override.TargetLanguage)
	}

	svc.TriggerProcessing()
	waitFor(t, func() bool { return len(b.texts()) == 2 }, "both requests delivered")

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.translations[0].SourceLanguage != "FR" || b.translations[0].TargetLanguage != "DE" {
		t.Errorf("unexpected wire languages %+v", b.translations[0])
	}
}

func TestService_EnqueueRejectsEmptyText(t *testing.T) {
	svc, _ := newTestService(t, "127.0.0.1:1", nil)

	_, err := svc.Enqueue("   ", "EN", "ES")
	if !errors.Is(err, shared.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestService_EnqueueEvictsOldest(t *testing.T) {
	svc, hub := newTestService(t, "127.0.0.1:1", nil)
	sub, cancel := hub.Subscribe(64)
	defer cancel()

	first, _ := svc.Enqueue("item-1", "", "")
	for i := 2; i <= 11; i++ {
		svc.Enqueue("item", "", "")
	}

	if got := svc.Status().QueueLength; got != 10 {
		t.Errorf("expected queue length 10, got %d", got)
	}

	select {
	case evt := <-sub:
		if evt.Kind != events.KindQueue || evt.RequestID != first.ID {
			t.Errorf("expected eviction event for %s, got %+v", first.ID, evt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an eviction event")
	}
}

func TestService_SetLanguages(t *testing.T) {
	svc, _ := newTestService(t, "127.0.0.1:1", nil)

	for _, text := range []string{"a", "b", "c"} {
		svc.Enqueue(text, "", "")
	}

	changed, err := svc.SetLanguages("en", "es")
	if err != nil {
		t.Fatalf("set languages: %v", err)
	}
	if changed {
		t.Error("same languages should not count as a change")
	}
	if got := svc.Status().QueueLength; got != 3 {
		t.Errorf("unchanged languages should keep the queue, got %d", got)
	}

	changed, _ = svc.SetLanguages("", "fr")
	if !changed {
		t.Error("expected a change")
	}
	if got := svc.Status().QueueLength; got != 0 {
		t.Errorf("changed languages should clear the queue, got %d", got)
	}
	if langs := svc.Languages(); langs.Source != "EN" || langs.Target != "FR" {
		t.Errorf("unexpected languages %+v", langs)
	}

	if _, err := svc.SetLanguages(" ", ""); !errors.Is(err, shared.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestService_ResetClosesConnection(t *testing.T) {
	b, base := startBackend(t)
	svc, hub := newTestService(t, base, nil)
	sub, cancel := hub.Subscribe(64)
	defer cancel()

	svc.Enqueue("hello", "", "")
	svc.TriggerProcessing()
	waitForEvent(t, sub, func(evt events.Event) bool { return evt.Kind == events.KindReply })
	waitFor(t, func() bool { return !svc.Status().Processing }, "processor idle")

	svc.Enqueue("pending", "", "")
	svc.Reset()

	status := svc.Status()
	if status.QueueLength != 0 {
		t.Errorf("expected empty queue after reset, got %d", status.QueueLength)
	}
	if state := status.Channels[transport.ChannelTranslate].State; state != "closed" {
		t.Errorf("expected translate channel closed, got %s", state)
	}

	svc.Enqueue("after reset", "", "")
	svc.TriggerProcessing()
	waitFor(t, func() bool { return len(b.texts()) == 2 }, "request delivered after reconnect")
	if got := b.texts(); got[1] != "after reset" {
		t.Errorf("expected only the post-reset request to be sent, got %v", got)
	}
	if dials := svc.Status().Channels[transport.ChannelTranslate].Dials; dials != 2 {
		t.Errorf("expected a fresh dial after reset, got %d dials", dials)
	}
}

func TestService_Transcribe(t *testing.T) {
	b, base := startBackend(t)
	svc, _ := newTestService(t, base, nil)

	result, err := svc.Transcribe(context.Background(), "fr", []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Text != "heard FR" || !result.Speech {
		t.Errorf("expected speech 'heard FR', got %+v", result)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.transcriptions) != 1 || b.transcriptions[0].Size != 4 {
		t.Errorf("unexpected transcriptions %+v", b.transcriptions)
	}
}

func TestService_TranscribeBackendError(t *testing.T) {
	b, base := startBackend(t)
	b.mu.Lock()
	b.replyError = "unsupported audio"
	b.mu.Unlock()
	svc, hub := newTestService(t, base, nil)

	result, err := svc.Transcribe(context.Background(), "", []byte{1})
	if !errors.Is(err, shared.ErrProcessingFailure) {
		t.Fatalf("expected ErrProcessingFailure, got %v", err)
	}
	if result.Error != "unsupported audio" {
		t.Errorf("expected backend error text, got %q", result.Error)
	}

	waitFor(t, func() bool {
		_, ok := hub.LastError(transport.ChannelTranscribe)
		return ok
	}, "transcribe error flag")
}

func TestService_TranscribeSilentAudio(t *testing.T) {
	b, base := startBackend(t)
	mock := clock.NewMock()
	svc, hub := newTestService(t, base, mock)

	type outcome struct {
		result Transcription
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := svc.Transcribe(context.Background(), "EN", make([]byte, 320))
		done <- outcome{result, err}
	}()

	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.transcriptions) == 1
	}, "silent clip to reach the backend")
	mock.Add(15 * time.Second)

	select {
	case got := <-done:
		if got.err != nil {
			t.Fatalf("silence is not an error, got %v", got.err)
		}
		if got.result.Speech || got.result.Text != "" {
			t.Errorf("expected no speech, got %+v", got.result)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("transcribe did not return after the reply window")
	}

	if _, ok := hub.LastError(transport.ChannelTranscribe); ok {
		t.Error("silence must not raise the transcribe error flag")
	}
}

func TestService_TranscribeIgnoresLateReply(t *testing.T) {
	b, base := startBackend(t)
	mock := clock.NewMock()
	svc, hub := newTestService(t, base, mock)
	sub, cancel := hub.Subscribe(64)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Transcribe(context.Background(), "EN", make([]byte, 8))
		done <- err
	}()
	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.transcriptions) == 1
	}, "first clip to reach the backend")
	mock.Add(15 * time.Second)
	if err := <-done; err != nil {
		t.Fatalf("first transcribe: %v", err)
	}

	b.push(t, transport.Reply{Message: "late"})
	waitForEvent(t, sub, func(evt events.Event) bool {
		return evt.Kind == events.KindReply && strings.Contains(evt.Payload, "late")
	})

	result, err := svc.Transcribe(context.Background(), "de", []byte{1, 2})
	if err != nil {
		t.Fatalf("second transcribe: %v", err)
	}
	if result.Text != "heard DE" {
		t.Errorf("late reply leaked into the next call: %+v", result)
	}
}

func TestService_TranscribeRejectsEmptyAudio(t *testing.T) {
	svc, _ := newTestService(t, "127.0.0.1:1", nil)

	if _, err := svc.Transcribe(context.Background(), "EN", nil); !errors.Is(err, shared.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestService_OnMessage(t *testing.T) {
	_, base := startBackend(t)
	svc, _ := newTestService(t, base, nil)

	if _, err := svc.OnMessage("unknown", func(transport.Frame) {}); !errors.Is(err, shared.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}

	frames := make(chan transport.Frame, 1)
	unsubscribe, err := svc.OnMessage(transport.ChannelTranslate, func(f transport.Frame) {
		select {
		case frames <- f:
		default:
		}
	})
	if err != nil {
		t.Fatalf("on message: %v", err)
	}
	defer unsubscribe()

	svc.Enqueue("ping", "EN", "ES")
	svc.TriggerProcessing()

	select {
	case f := <-frames:
		reply, err := transport.DecodeReply(f.Data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if reply.Message != "ES:ping" {
			t.Errorf("expected 'ES:ping', got %q", reply.Message)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected a reply frame")
	}
}

func TestService_StatusReportsAndClearsErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := strings.TrimPrefix(server.URL, "http://")
	server.Close()

	svc, hub := newTestService(t, base, nil)
	sub, cancel := hub.Subscribe(64)
	defer cancel()

	req, _ := svc.Enqueue("lost", "", "")
	svc.TriggerProcessing()

	evt := waitForEvent(t, sub, func(evt events.Event) bool {
		return evt.Kind == events.KindError && evt.RequestID == req.ID
	})
	if evt.Code != shared.CodeTransport {
		t.Errorf("expected %s, got %s", shared.CodeTransport, evt.Code)
	}
	if _, ok := svc.Status().Errors[transport.ChannelTranslate]; !ok {
		t.Fatal("expected status to report the translate error")
	}

	if !svc.ClearError(transport.ChannelTranslate) {
		t.Error("expected an error to be cleared")
	}
	if svc.ClearError(transport.ChannelTranslate) {
		t.Error("second clear should report nothing to clear")
	}
}

func TestService_JanitorPrunesStaleRequests(t *testing.T) {
	mock := clock.NewMock()
	svc, _ := newTestService(t, "127.0.0.1:1", mock)

	svc.Enqueue("old", "", "")
	mock.Add(4 * time.Minute)
	svc.Enqueue("fresh", "", "")

	waitFor(t, func() bool {
		mock.Add(time.Minute)
		return svc.Status().QueueLength < 2
	}, "stale request pruned")

	if got := svc.Status().QueueLength; got != 1 {
		t.Errorf("expected fresh request to survive, got queue length %d", got)
	}
}

func TestService_PruneStale(t *testing.T) {
	mock := clock.NewMock()
	svc := NewService(Config{APIBase: "127.0.0.1:1"}, events.NewHub(testLogger()), nil, mock, testLogger())
	defer svc.Stop()

	svc.Enqueue("a", "", "")
	svc.Enqueue("b", "", "")
	mock.Set(mock.Now().Add(5 * time.Minute))
	svc.Enqueue("c", "", "")

	if removed := svc.PruneStale(); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
}
