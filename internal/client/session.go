package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/live-translate/internal/audio"
	"github.com/eleven-am/live-translate/internal/language"
	"github.com/eleven-am/live-translate/internal/protocol"
	"github.com/eleven-am/live-translate/internal/segmenter"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultServerURL       = "ws://localhost:8765"
	DefaultRefreshInterval = 250 * time.Millisecond

	StatusConnecting    = "Connecting to server..."
	StatusConnected     = "Connected to server"
	StatusConnectFailed = "Failed to connect to server"
	StatusClosed        = "Connection to server closed"

	Controls = "Press R to start/stop recording, Q to quit"
)

var (
	ErrNotConnected  = errors.New("not connected")
	errExitRequested = errors.New("exit requested")
)

// Sink receives periodic snapshots. Render must not block.
type Sink interface {
	Render(Snapshot)
}

type SinkFunc func(Snapshot)

func (f SinkFunc) Render(s Snapshot) { f(s) }

type Config struct {
	ServerURL       string
	Languages       protocol.SessionConfig
	Segmenter       segmenter.Config
	RefreshInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		ServerURL: DefaultServerURL,
		Languages: protocol.SessionConfig{
			SourceLang: language.DefaultClientSource,
			TargetLang: language.DefaultClientTarget,
		},
		Segmenter:       segmenter.DefaultConfig(),
		RefreshInterval: DefaultRefreshInterval,
	}
}

// Session connects one audio source to the relay and keeps State current.
type Session struct {
	cfg    Config
	state  *State
	source audio.Source
	sink   Sink
	logger *slog.Logger

	mu    sync.Mutex
	conn  *Conn
	langs protocol.SessionConfig
}

func NewSession(cfg Config, state *State, source audio.Source, sink Sink, logger *slog.Logger) *Session {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if sink == nil {
		sink = SinkFunc(func(Snapshot) {})
	}
	return &Session{
		cfg:    cfg,
		state:  state,
		source: source,
		sink:   sink,
		logger: logger.With("component", "client_session"),
		langs:  cfg.Languages,
	}
}

func (s *Session) State() *State {
	return s.state
}

// Run blocks until the user exits, the server goes away or ctx is cancelled.
// Exit and cancellation return nil.
func (s *Session) Run(ctx context.Context) error {
	defer s.releaseSource()

	if err := s.cfg.Languages.Validate(); err != nil {
		return err
	}
	seg, err := segmenter.New(s.cfg.Segmenter)
	if err != nil {
		return err
	}

	s.state.SetLanguages(s.cfg.Languages.SourceLang, s.cfg.Languages.TargetLang)
	s.state.SetStatus(StatusConnecting)
	s.sink.Render(s.state.Snapshot())

	conn, err := Dial(ctx, s.cfg.ServerURL, s.logger)
	if err != nil {
		s.logger.Error("failed to connect", "url", s.cfg.ServerURL, "error", err)
		s.state.SetStatus(StatusConnectFailed)
		s.sink.Render(s.state.Snapshot())
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	s.state.SetStatus(StatusConnected)
	s.logger.Info("connected", "url", s.cfg.ServerURL)

	if err := conn.Send(ctx, protocol.NewConfig(s.cfg.Languages)); err != nil {
		s.state.SetStatus(StatusClosed)
		s.sink.Render(s.state.Snapshot())
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.capture(gctx, seg, conn) })
	g.Go(func() error { return s.receive(gctx, conn) })
	g.Go(func() error { return s.render(gctx) })
	g.Go(func() error {
		select {
		case <-s.state.Exiting():
			return errExitRequested
		case <-gctx.Done():
			return nil
		}
	})

	err = g.Wait()
	s.sink.Render(s.state.Snapshot())

	if errors.Is(err, errExitRequested) || errors.Is(err, context.Canceled) {
		s.logger.Info("session finished")
		return nil
	}
	return err
}

// UpdateLanguages sends a ConfigUpdate. Empty arguments keep the current value.
func (s *Session) UpdateLanguages(ctx context.Context, sourceLang, targetLang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}

	next := s.langs.Merge(&protocol.Message{SourceLang: sourceLang, TargetLang: targetLang})
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.conn.Send(ctx, protocol.NewConfigUpdate(sourceLang, targetLang)); err != nil {
		return err
	}
	s.langs = next
	s.state.SetLanguages(next.SourceLang, next.TargetLang)
	s.logger.Info("languages updated", "source_lang", next.SourceLang, "target_lang", next.TargetLang)
	return nil
}

// Languages returns the languages last sent to the server.
func (s *Session) Languages() protocol.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.langs
}

func (s *Session) capture(ctx context.Context, seg *segmenter.Segmenter, conn *Conn) error {
	if err := s.source.Start(); err != nil {
		return fmt.Errorf("start audio source: %w", err)
	}
	defer func() {
		if n := seg.Pending(); n > 0 {
			s.logger.Debug("discarding partial segment", "chunks", n)
		}
		seg.Discard()
		s.releaseSource()
	}()

	chunks := s.source.Chunks()
	exiting := s.state.Exiting()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-exiting:
			return nil
		case chunk, ok := <-chunks:
			if !ok {
				return audio.ErrSourceClosed
			}
			if s.stopping(ctx) {
				return nil
			}
			segment, sealed := seg.Push(chunk, s.state.Recording())
			if !sealed {
				continue
			}
			if s.stopping(ctx) {
				return nil
			}
			if err := s.sendSegment(ctx, conn, segment); err != nil {
				return err
			}
		}
	}
}

// stopping reports whether the user asked to exit or ctx ended. Once true no Audio is sent.
func (s *Session) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-s.state.Exiting():
		return true
	default:
		return false
	}
}

// releaseSource stops the audio source; Stop is idempotent on every Source.
func (s *Session) releaseSource() {
	if err := s.source.Stop(); err != nil {
		s.logger.Warn("failed to stop audio source", "error", err)
	}
}

func (s *Session) sendSegment(ctx context.Context, conn *Conn, segment *segmenter.Segment) error {
	wav, err := segment.WAV()
	if err != nil {
		s.logger.Error("failed to encode segment", "error", err)
		return nil
	}
	s.logger.Debug("sending segment", "chunks", len(segment.Chunks), "duration", segment.Duration())
	if err := conn.Send(ctx, protocol.NewAudio(wav)); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.state.SetStatus(StatusClosed)
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return nil
}

func (s *Session) receive(ctx context.Context, conn *Conn) error {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Info("server connection closed", "error", err)
			s.state.SetStatus(StatusClosed)
			return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}

		switch msg.Type {
		case protocol.TypeResult:
			s.state.SetResult(msg.SourceText, msg.TranslatedText)
		case protocol.TypeError:
			s.state.SetStatus("Error: " + msg.Message)
		case protocol.TypeConfigConfirm:
			s.state.SetStatus(msg.Message)
		default:
			s.logger.Debug("ignoring server message", "type", msg.Type)
		}
	}
}

func (s *Session) render(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sink.Render(s.state.Snapshot())
		}
	}
}
