package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/eleven-am/live-translate/internal/history"
	"github.com/eleven-am/live-translate/internal/relay"
	"github.com/eleven-am/live-translate/internal/session"
	"github.com/eleven-am/live-translate/internal/transcription"
	"github.com/eleven-am/live-translate/internal/translation"
	"github.com/eleven-am/live-translate/internal/workpool"
	"go.uber.org/fx"
)

func ProvideTranscriber(cfg *Config, logger *slog.Logger) (transcription.Transcriber, error) {
	switch cfg.STTProvider {
	case "http":
		return transcription.NewClient(transcription.Config{
			URL:     cfg.STTURL,
			APIKey:  cfg.STTAPIKey,
			Model:   cfg.STTModel,
			Timeout: cfg.CallTimeout,
		}, logger), nil
	case "fake":
		logger.Warn("using fake transcriber")
		return transcription.NewFake("hello", nil), nil
	default:
		return nil, fmt.Errorf("unknown STT_PROVIDER %q", cfg.STTProvider)
	}
}

func ProvideTranslator(cfg *Config, logger *slog.Logger) (translation.Translator, error) {
	switch cfg.TranslateProvider {
	case "mymemory":
		return translation.NewMyMemory(translation.MyMemoryConfig{
			URL:            cfg.MyMemoryURL,
			Email:          cfg.MyMemoryEmail,
			RequestsPerSec: cfg.TranslateRPS,
			Timeout:        cfg.CallTimeout,
		}, logger), nil
	case "stub":
		logger.Warn("using stub translator")
		return translation.NewStub(nil), nil
	default:
		return nil, fmt.Errorf("unknown TRANSLATE_PROVIDER %q", cfg.TranslateProvider)
	}
}

func ProvideWorkerPool(cfg *Config) *workpool.Pool {
	return workpool.New(workpool.Config{
		Workers:      cfg.Workers,
		QueueTimeout: cfg.QueueTimeout,
	})
}

func ProvideRelayConfig(cfg *Config) relay.Config {
	return relay.Config{
		CallTimeout:    cfg.CallTimeout,
		QueueDepth:     cfg.QueueDepth,
		MaxMessageSize: cfg.MaxMessageSize,
	}
}

type RelayDepsParams struct {
	fx.In

	Transcriber transcription.Transcriber
	Translator  translation.Translator
	Pool        *workpool.Pool
	Recorder    *session.Recorder
	History     *history.Store
}

// ProvideRelayDeps leaves Recorder and History as untyped nil when their backing store is disabled.
func ProvideRelayDeps(p RelayDepsParams) relay.Deps {
	deps := relay.Deps{
		Transcriber: p.Transcriber,
		Translator:  p.Translator,
		Pool:        p.Pool,
	}
	if p.Recorder != nil {
		deps.Recorder = p.Recorder
	}
	if p.History != nil {
		deps.History = p.History
	}
	return deps
}

func ProvideRelayHandler(cfg relay.Config, deps relay.Deps, manager *relay.Manager, logger *slog.Logger) *relay.Handler {
	return relay.NewHandler(cfg, deps, manager, logger.With("handler", "relay"))
}

var RelayModule = fx.Options(
	fx.Provide(
		ProvideTranscriber,
		ProvideTranslator,
		ProvideWorkerPool,
		ProvideRelayConfig,
		ProvideRelayDeps,
		relay.NewManager,
		ProvideRelayHandler,
	),
)
