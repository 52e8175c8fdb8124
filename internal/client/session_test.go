package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/live-translate/internal/audio"
	"github.com/eleven-am/live-translate/internal/protocol"
	"github.com/eleven-am/live-translate/internal/relay"
	"github.com/eleven-am/live-translate/internal/segmenter"
	"github.com/eleven-am/live-translate/internal/transcription"
	"github.com/eleven-am/live-translate/internal/translation"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loudSamples(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 2000
		} else {
			out[i] = -2000
		}
	}
	return out
}

func newRelayServer(t *testing.T) string {
	t.Helper()
	e := echo.New()
	deps := relay.Deps{
		Transcriber: transcription.NewFake("hello", nil),
		Translator:  translation.NewStub(nil),
	}
	relay.NewHandler(relay.Config{}, deps, relay.NewManager(), testLogger()).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return "ws" + srv.URL[4:]
}

// scriptedServer records what the client sends and answers config messages.
type scriptedServer struct {
	mu       sync.Mutex
	received []protocol.MessageType
	closeNow bool
}

func (s *scriptedServer) types() []protocol.MessageType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.MessageType(nil), s.received...)
}

func (s *scriptedServer) start(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.Decode(data)
			if err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, msg.Type)
			s.mu.Unlock()

			var reply *protocol.Message
			switch msg.Type {
			case protocol.TypeConfig:
				reply = protocol.NewConfigConfirm(protocol.ReadyText(msg.SessionConfig()))
			case protocol.TypeConfigUpdate:
				reply = protocol.NewConfigConfirm("updated")
			case protocol.TypeAudio:
				reply = protocol.NewError("Could not transcribe audio")
			}
			out, _ := protocol.Encode(reply)
			if err := ws.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
			if s.closeNow {
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + srv.URL[4:]
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recordingSink) Render(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recordingSink) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return Snapshot{}
	}
	return r.snaps[len(r.snaps)-1]
}

func testConfig(url, src, tgt string) Config {
	cfg := DefaultConfig()
	cfg.ServerURL = url
	cfg.Languages = protocol.SessionConfig{SourceLang: src, TargetLang: tgt}
	cfg.RefreshInterval = 10 * time.Millisecond
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func runSession(sess *Session) <-chan error {
	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()
	return done
}

func TestSession_EndToEndAgainstRelay(t *testing.T) {
	url := newRelayServer(t)
	st := NewState("")
	st.SetRecording(true)
	src := audio.NewFakeSource(loudSamples(16000), audio.CaptureConfig{}, false)
	sink := &recordingSink{}
	sess := NewSession(testConfig(url, "en", "th"), st, src, sink, testLogger())

	done := runSession(sess)
	waitFor(t, "translated result", func() bool { return st.Snapshot().TranslatedText == "สวัสดี" })

	if snap := st.Snapshot(); snap.SourceText != "hello" || snap.Status != "Server ready, translating English to Thai" {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	st.RequestExit()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after exit request")
	}
	if !src.Stopped() {
		t.Error("expected audio source to be stopped")
	}
	if !sink.last().Exiting {
		t.Error("expected final render after exit")
	}
}

func TestSession_ConnectFailure(t *testing.T) {
	st := NewState("")
	src := audio.NewFakeSource(nil, audio.CaptureConfig{}, false)
	sess := NewSession(testConfig("ws://127.0.0.1:1", "ja", "en"), st, src, nil, testLogger())

	err := sess.Run(context.Background())
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	if st.Snapshot().Status != StatusConnectFailed {
		t.Errorf("unexpected status %q", st.Snapshot().Status)
	}
	if !src.Stopped() {
		t.Error("expected audio source to be released after a failed connect")
	}
}

func TestSession_ServerClosesConnection(t *testing.T) {
	server := &scriptedServer{closeNow: true}
	url := server.start(t)
	st := NewState("")
	src := audio.NewFakeSource(nil, audio.CaptureConfig{}, false)
	sess := NewSession(testConfig(url, "ja", "en"), st, src, nil, testLogger())

	err := sess.Run(context.Background())
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
	if st.Snapshot().Status != StatusClosed {
		t.Errorf("unexpected status %q", st.Snapshot().Status)
	}
	if !src.Stopped() {
		t.Error("expected audio source to be released")
	}
}

func TestSession_NotRecordingSendsNothing(t *testing.T) {
	server := &scriptedServer{}
	url := server.start(t)
	st := NewState("")
	src := audio.NewFakeSource(loudSamples(16000), audio.CaptureConfig{}, false)
	sess := NewSession(testConfig(url, "ja", "en"), st, src, nil, testLogger())

	done := runSession(sess)
	<-src.AudioDone()
	time.Sleep(100 * time.Millisecond)
	st.RequestExit()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, typ := range server.types() {
		if typ == protocol.TypeAudio {
			t.Fatal("audio was sent while not recording")
		}
	}
}

func TestSession_ExitDuringCaptureDropsPartialSegment(t *testing.T) {
	server := &scriptedServer{}
	url := server.start(t)
	st := NewState("")
	st.SetRecording(true)

	cfg := testConfig(url, "ja", "en")
	cfg.Segmenter = segmenter.DefaultConfig()
	src := audio.NewFakeSource(loudSamples(16000*30), audio.CaptureConfig{}, true)
	sess := NewSession(cfg, st, src, nil, testLogger())

	done := runSession(sess)
	waitFor(t, "config confirm", func() bool { return st.Snapshot().Status == "Server ready, translating Japanese to English" })
	time.Sleep(300 * time.Millisecond)
	st.RequestExit()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, typ := range server.types() {
		if typ == protocol.TypeAudio {
			t.Fatal("partial segment was sent after exit")
		}
	}
	if !src.Stopped() {
		t.Error("expected audio source to be stopped")
	}
}

func TestSession_ErrorMessageUpdatesStatus(t *testing.T) {
	server := &scriptedServer{}
	url := server.start(t)
	st := NewState("")
	st.SetRecording(true)
	src := audio.NewFakeSource(loudSamples(8000), audio.CaptureConfig{}, false)
	sess := NewSession(testConfig(url, "ja", "en"), st, src, nil, testLogger())

	done := runSession(sess)
	waitFor(t, "error status", func() bool { return st.Snapshot().Status == "Error: Could not transcribe audio" })
	st.RequestExit()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSession_UpdateLanguages(t *testing.T) {
	server := &scriptedServer{}
	url := server.start(t)
	st := NewState("")
	src := audio.NewFakeSource(nil, audio.CaptureConfig{}, false)
	sess := NewSession(testConfig(url, "ja", "en"), st, src, nil, testLogger())

	if err := sess.UpdateLanguages(context.Background(), "", "th"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected before Run, got %v", err)
	}

	done := runSession(sess)
	waitFor(t, "config confirm", func() bool { return st.Snapshot().Status == "Server ready, translating Japanese to English" })

	if err := sess.UpdateLanguages(context.Background(), "", "xx"); err == nil {
		t.Error("expected unsupported language to be rejected")
	}
	if err := sess.UpdateLanguages(context.Background(), "", "th"); err != nil {
		t.Fatalf("update: %v", err)
	}
	waitFor(t, "update confirm", func() bool { return st.Snapshot().Status == "updated" })
	if got := sess.Languages(); got.SourceLang != "ja" || got.TargetLang != "th" {
		t.Errorf("unexpected languages %+v", got)
	}
	if snap := st.Snapshot(); snap.TargetLang != "th" {
		t.Errorf("expected state to carry target th, got %s", snap.TargetLang)
	}

	st.RequestExit()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// chanSource hands the test direct control over every chunk the session sees.
type chanSource struct {
	mu      sync.Mutex
	chunks  chan []int16
	stopped bool
}

func newChanSource() *chanSource {
	return &chanSource{chunks: make(chan []int16, 8)}
}

func (c *chanSource) Start() error { return nil }

func (c *chanSource) Chunks() <-chan []int16 { return c.chunks }

func (c *chanSource) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	return nil
}

func (c *chanSource) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func TestSession_NoAudioAfterExitRequest(t *testing.T) {
	for i := 0; i < 20; i++ {
		server := &scriptedServer{}
		url := server.start(t)
		st := NewState("")
		st.SetRecording(true)

		cfg := testConfig(url, "ja", "en")
		cfg.Segmenter = segmenter.DefaultConfig()
		cfg.Segmenter.MaxDuration = 200 * time.Millisecond
		if cfg.Segmenter.MaxChunks() != 3 {
			t.Fatalf("expected a 3 chunk ceiling, got %d", cfg.Segmenter.MaxChunks())
		}
		src := newChanSource()
		sess := NewSession(cfg, st, src, nil, testLogger())

		done := runSession(sess)
		waitFor(t, "config confirm", func() bool { return st.Snapshot().Status == "Server ready, translating Japanese to English" })

		loud := loudSamples(cfg.Segmenter.ChunkSize)
		src.chunks <- loud
		src.chunks <- loud
		st.RequestExit()
		src.chunks <- loud

		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, typ := range server.types() {
			if typ == protocol.TypeAudio {
				t.Fatalf("run %d: audio sent after exit was requested", i)
			}
		}
		if !src.Stopped() {
			t.Fatalf("run %d: expected audio source to be released", i)
		}
	}
}
