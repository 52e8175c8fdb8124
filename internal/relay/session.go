package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/eleven-am/live-translate/internal/audio"
	"github.com/eleven-am/live-translate/internal/history"
	"github.com/eleven-am/live-translate/internal/protocol"
	"github.com/eleven-am/live-translate/internal/session"
	"github.com/eleven-am/live-translate/internal/shared"
	"github.com/eleven-am/live-translate/internal/transcription"
	"github.com/eleven-am/live-translate/internal/translation"
	"github.com/eleven-am/live-translate/internal/workpool"
	"github.com/gorilla/websocket"
)

// Error texts sent to the client. None of them end the session.
const (
	MsgNoSpeech          = "Could not transcribe audio"
	MsgRecognizerDown    = "Speech recognition service unavailable"
	MsgTranscribeTimeout = "Transcription timed out"
	MsgTranslateFailed   = "Translation failed"
	MsgTranslateTimeout  = "Translation timed out"
	MsgBusy              = "Server busy, segment dropped"
)

const (
	defaultCallTimeout   = 30 * time.Second
	defaultQueueDepth    = 8
	closeReasonShutdown  = "server shutting down"
	maxCloseReasonLength = 120
)

var ErrProtocol = errors.New("protocol violation")

type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol violation: " + e.Reason
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

func violation(format string, args ...any) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

type State int

const (
	StateAwaitingConfig State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingConfig:
		return "awaiting_config"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type Recorder interface {
	Started(ctx context.Context, id, remoteAddr string)
	Configured(ctx context.Context, id, sourceLang, targetLang string)
	Ended(ctx context.Context, id string, status session.Status, reason string)
	Count(ctx context.Context, field string)
	Latency(ctx context.Context, d time.Duration)
}

type HistoryWriter interface {
	Save(ctx context.Context, e *history.Entry) error
}

type nopRecorder struct{}

func (nopRecorder) Started(context.Context, string, string)               {}
func (nopRecorder) Configured(context.Context, string, string, string)    {}
func (nopRecorder) Ended(context.Context, string, session.Status, string) {}
func (nopRecorder) Count(context.Context, string)                         {}
func (nopRecorder) Latency(context.Context, time.Duration)                {}

type Deps struct {
	Transcriber transcription.Transcriber
	Translator  translation.Translator
	Pool        *workpool.Pool
	Recorder    Recorder
	History     HistoryWriter
}

type Config struct {
	CallTimeout    time.Duration
	QueueDepth     int
	MaxMessageSize int64
}

func (c Config) withDefaults() Config {
	if c.CallTimeout <= 0 {
		c.CallTimeout = defaultCallTimeout
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = defaultQueueDepth
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	return c
}

type jobKind int

const (
	jobReply jobKind = iota
	jobSegment
)

type job struct {
	kind     jobKind
	reply    *protocol.Message
	clip     audio.Clip
	cfg      protocol.SessionConfig
	received time.Time
}

type Info struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	State      string    `json:"state"`
	SourceLang string    `json:"source_lang,omitempty"`
	TargetLang string    `json:"target_lang,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// Session drives one client connection. The read loop owns state transitions;
// a single processor goroutine handles queued work so replies keep arrival order.
type Session struct {
	id        string
	conn      *Conn
	cfg       Config
	deps      Deps
	logger    *slog.Logger
	startedAt time.Time

	mu    sync.RWMutex
	state State
	langs protocol.SessionConfig
	jobs  chan job
}

func NewSession(conn *Conn, cfg Config, deps Deps, logger *slog.Logger) *Session {
	cfg = cfg.withDefaults()
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Pool == nil {
		deps.Pool = workpool.New(workpool.DefaultConfig())
	}
	id := shared.NewID("sess_")
	return &Session{
		id:        id,
		conn:      conn,
		cfg:       cfg,
		deps:      deps,
		logger:    logger.With("session_id", id),
		startedAt: time.Now(),
		state:     StateAwaitingConfig,
		jobs:      make(chan job, cfg.QueueDepth),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Languages() protocol.SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.langs
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:         s.id,
		RemoteAddr: s.conn.RemoteAddr(),
		State:      s.state.String(),
		SourceLang: s.langs.SourceLang,
		TargetLang: s.langs.TargetLang,
		StartedAt:  s.startedAt,
	}
}

// Shutdown closes the connection with a going-away frame.
func (s *Session) Shutdown() {
	s.conn.CloseWith(websocket.CloseGoingAway, closeReasonShutdown)
}

// Run blocks until the connection ends. A protocol violation closes the socket
// with a 1002 frame and is returned as a *ProtocolError.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.deps.Recorder.Started(ctx, s.id, s.conn.RemoteAddr())
	s.conn.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.process(ctx)
	}()

	err := s.readLoop(ctx)

	var perr *ProtocolError
	status, reason := session.StatusEnded, ""
	switch {
	case errors.As(err, &perr):
		status, reason = session.StatusProtocolError, perr.Reason
		s.conn.CloseWith(websocket.CloseProtocolError, truncate(perr.Reason, maxCloseReasonLength))
	case err != nil && !isNormalClose(err):
		status, reason = session.StatusError, err.Error()
	}

	s.setState(StateClosed)
	cancel()
	s.conn.Close()
	close(s.jobs)
	wg.Wait()

	s.deps.Recorder.Ended(context.WithoutCancel(ctx), s.id, status, reason)
	if isNormalClose(err) {
		return nil
	}
	return err
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-s.conn.Incoming():
			if !ok {
				return s.conn.ReadErr()
			}
			if err := s.handleFrame(ctx, f); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, f frame) error {
	if f.kind != websocket.TextMessage {
		return violation("binary frames are not supported")
	}
	msg, err := protocol.Decode(f.data)
	if err != nil {
		return violation("%v", err)
	}
	if !msg.Type.ClientToServer() {
		return violation("%s is a server message", msg.Type)
	}

	switch s.State() {
	case StateAwaitingConfig:
		if msg.Type != protocol.TypeConfig {
			return violation("expected config, got %s", msg.Type)
		}
		langs := msg.SessionConfig()
		s.mu.Lock()
		s.langs = langs
		s.state = StateReady
		s.mu.Unlock()

		s.logger.Info("session configured", "source_lang", langs.SourceLang, "target_lang", langs.TargetLang)
		s.deps.Recorder.Configured(ctx, s.id, langs.SourceLang, langs.TargetLang)
		return s.enqueue(ctx, job{kind: jobReply, reply: protocol.NewConfigConfirm(protocol.ReadyText(langs))})

	case StateReady:
		switch msg.Type {
		case protocol.TypeConfig:
			return violation("config already received")
		case protocol.TypeConfigUpdate:
			s.mu.Lock()
			s.langs = s.langs.Merge(msg)
			langs := s.langs
			s.mu.Unlock()

			s.logger.Info("session languages updated", "source_lang", langs.SourceLang, "target_lang", langs.TargetLang)
			s.deps.Recorder.Configured(ctx, s.id, langs.SourceLang, langs.TargetLang)
			return s.enqueue(ctx, job{kind: jobReply, reply: protocol.NewConfigConfirm(protocol.UpdatedText(langs))})
		case protocol.TypeAudio:
			clip, err := audio.DecodeWAV(msg.AudioData)
			if err != nil {
				return violation("invalid audio payload: %v", err)
			}
			return s.enqueue(ctx, job{kind: jobSegment, clip: clip, cfg: s.Languages(), received: time.Now()})
		default:
			return violation("unexpected message type %s", msg.Type)
		}
	}
	return violation("session is closed")
}

// enqueue blocks while the queue is full, which stops reads and pushes back on the client.
func (s *Session) enqueue(ctx context.Context, j job) error {
	select {
	case s.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) process(ctx context.Context) {
	for j := range s.jobs {
		if ctx.Err() != nil {
			continue
		}
		reply := j.reply
		if j.kind == jobSegment {
			reply = s.translateSegment(ctx, j)
		}
		if reply == nil {
			continue
		}
		if err := s.conn.Send(ctx, reply); err != nil {
			s.logger.Debug("reply not sent", "type", reply.Type, "error", err)
		}
	}
}

func (s *Session) translateSegment(ctx context.Context, j job) *protocol.Message {
	s.deps.Recorder.Count(ctx, session.FieldSegments)

	var reply *protocol.Message
	err := s.deps.Pool.Do(ctx, func(ctx context.Context) error {
		reply = s.handleSegment(ctx, j)
		return nil
	})
	switch {
	case errors.Is(err, workpool.ErrSaturated):
		s.logger.Warn("segment rejected, worker pool saturated")
		s.deps.Recorder.Count(ctx, session.FieldRejected)
		return protocol.NewError(MsgBusy)
	case err != nil:
		return nil
	}
	if reply == nil {
		return nil
	}
	if reply.Type == protocol.TypeError {
		s.deps.Recorder.Count(ctx, session.FieldErrors)
	}
	return reply
}

func (s *Session) handleSegment(ctx context.Context, j job) *protocol.Message {
	logger := s.logger.With("source_lang", j.cfg.SourceLang, "target_lang", j.cfg.TargetLang, "audio_s", j.clip.Duration())

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	text, err := s.deps.Transcriber.Transcribe(callCtx, j.clip, j.cfg.SourceLang)
	cancel()
	if ctx.Err() != nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("transcription timed out", "timeout", s.cfg.CallTimeout)
		return protocol.NewError(MsgTranscribeTimeout)
	case errors.Is(err, transcription.ErrUnavailable):
		logger.Error("speech recognition unavailable", "error", err)
		return protocol.NewError(MsgRecognizerDown)
	case err != nil:
		logger.Error("transcription failed", "error", err)
		return protocol.NewError(MsgNoSpeech)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		logger.Info("no intelligible speech in segment")
		return protocol.NewError(MsgNoSpeech)
	}

	translated := text
	if !j.cfg.SameLanguage() {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		translated, err = s.deps.Translator.Translate(callCtx, text, j.cfg.SourceLang, j.cfg.TargetLang)
		cancel()
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn("translation timed out", "timeout", s.cfg.CallTimeout)
			return protocol.NewError(MsgTranslateTimeout)
		case err != nil:
			logger.Error("translation failed", "error", err)
			return protocol.NewError(MsgTranslateFailed)
		}
	}

	latency := time.Since(j.received)
	logger.Info("segment translated", "latency_ms", latency.Milliseconds())
	s.deps.Recorder.Count(ctx, session.FieldResults)
	s.deps.Recorder.Latency(ctx, latency)
	s.saveHistory(ctx, j, text, translated, latency)

	return protocol.NewResult(text, translated)
}

func (s *Session) saveHistory(ctx context.Context, j job, text, translated string, latency time.Duration) {
	if s.deps.History == nil {
		return
	}
	entry := &history.Entry{
		SessionID:      s.id,
		SourceLang:     j.cfg.SourceLang,
		TargetLang:     j.cfg.TargetLang,
		SourceText:     text,
		TranslatedText: translated,
		AudioMs:        int64(j.clip.Duration() * 1000),
		LatencyMs:      latency.Milliseconds(),
	}
	if err := s.deps.History.Save(ctx, entry); err != nil {
		s.logger.Error("failed to save history entry", "error", err)
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func isNormalClose(err error) bool {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, ErrConnClosed) || errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
