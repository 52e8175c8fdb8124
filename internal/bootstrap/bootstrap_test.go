package bootstrap

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/eleven-am/live-translate/internal/history"
	"github.com/eleven-am/live-translate/internal/session"
	"github.com/eleven-am/live-translate/internal/transcription"
	"github.com/eleven-am/live-translate/internal/translation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()
	if cfg.ServerAddr != "localhost:8765" {
		t.Errorf("expected localhost:8765, got %s", cfg.ServerAddr)
	}
	if cfg.CallTimeout != 30*time.Second {
		t.Errorf("expected 30s call timeout, got %v", cfg.CallTimeout)
	}
	if cfg.RedisAddr != "" || cfg.DatabaseDSN != "" {
		t.Error("expected redis and database to be disabled by default")
	}
	if cfg.STTProvider != "http" || cfg.TranslateProvider != "mymemory" {
		t.Errorf("unexpected providers %s / %s", cfg.STTProvider, cfg.TranslateProvider)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("CALL_TIMEOUT", "2s")
	t.Setenv("WORKERS", "3")
	t.Setenv("TRANSLATE_RPS", "1.5")
	t.Setenv("QUEUE_TIMEOUT", "not-a-duration")

	cfg := LoadConfig()
	if cfg.ServerAddr != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.ServerAddr)
	}
	if cfg.CallTimeout != 2*time.Second {
		t.Errorf("expected 2s, got %v", cfg.CallTimeout)
	}
	if cfg.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Workers)
	}
	if cfg.TranslateRPS != 1.5 {
		t.Errorf("expected 1.5 rps, got %v", cfg.TranslateRPS)
	}
	if cfg.QueueTimeout != 5*time.Second {
		t.Errorf("invalid duration should fall back to default, got %v", cfg.QueueTimeout)
	}
}

func TestParseLogLevel(t *testing.T) {
	if parseLogLevel("debug") != slog.LevelDebug {
		t.Error("expected debug")
	}
	if parseLogLevel("bogus") != slog.LevelInfo {
		t.Error("expected info fallback")
	}
}

func TestProviders_UnknownBackends(t *testing.T) {
	cfg := LoadConfig()
	cfg.STTProvider = "carrier-pigeon"
	if _, err := ProvideTranscriber(cfg, testLogger()); err == nil {
		t.Error("expected error for unknown transcriber")
	}
	cfg.TranslateProvider = "carrier-pigeon"
	if _, err := ProvideTranslator(cfg, testLogger()); err == nil {
		t.Error("expected error for unknown translator")
	}
}

func TestProvideRelayDeps_DisabledStores(t *testing.T) {
	deps := ProvideRelayDeps(RelayDepsParams{
		Transcriber: transcription.NewFake("hi", nil),
		Translator:  translation.NewStub(nil),
	})
	if deps.Recorder != nil {
		t.Error("expected nil recorder interface when redis is disabled")
	}
	if deps.History != nil {
		t.Error("expected nil history interface when the database is disabled")
	}
}

func TestOpenDatabase_SQLite(t *testing.T) {
	db, err := openDatabase("sqlite::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store := ProvideHistoryStore(db)
	if err := RunMigrations(store); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !db.Migrator().HasTable(&history.Entry{}) {
		t.Error("expected history table after migration")
	}
}

func TestStores_NilWhenDisabled(t *testing.T) {
	if ProvideSessionStore(nil) != nil {
		t.Error("expected nil session store")
	}
	if ProvideSessionRecorder((*session.Store)(nil), testLogger()) != nil {
		t.Error("expected nil recorder")
	}
	if ProvideHistoryStore(nil) != nil {
		t.Error("expected nil history store")
	}
	if err := RunMigrations(nil); err != nil {
		t.Errorf("expected no-op migration, got %v", err)
	}
}

func TestApplicationGraph(t *testing.T) {
	err := fx.ValidateApp(
		fx.Provide(LoadConfig, ProvideLogger),
		InfrastructureModule,
		StoresModule,
		RelayModule,
		ServerModule,
		HealthModule,
		GRPCModule,
		HandlersModule,
	)
	if err != nil {
		t.Fatalf("invalid dependency graph: %v", err)
	}
}
