package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eleven-am/live-translate/internal/shared"
	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store := NewStore(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := &Entry{
		SessionID:      "sess_1",
		SourceLang:     "en",
		TargetLang:     "th",
		SourceText:     "hello",
		TranslatedText: "สวัสดี",
		AudioMs:        1200,
	}
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("save: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := store.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TranslatedText != "สวัสดี" || got.SessionID != "sess_1" {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.GetByID(context.Background(), "nope"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListBySession(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		if err := store.Save(ctx, &Entry{
			SessionID:  "sess_a",
			SourceLang: "en",
			TargetLang: "es",
			SourceText: fmt.Sprintf("line %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := store.Save(ctx, &Entry{SessionID: "sess_b", SourceLang: "en", TargetLang: "es"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := store.ListBySession(ctx, "sess_a", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].SourceText != "line 0" || entries[2].SourceText != "line 2" {
		t.Errorf("expected oldest first, got %q..%q", entries[0].SourceText, entries[2].SourceText)
	}

	n, err := store.CountBySession(ctx, "sess_b")
	if err != nil || n != 1 {
		t.Errorf("expected 1 entry for sess_b, got %d (%v)", n, err)
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("expected 2 recent entries, got %d", len(recent))
	}
}

func TestHandler(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	e := &Entry{SessionID: "sess_h", SourceLang: "ja", TargetLang: "en", SourceText: "こんにちは", TranslatedText: "hello"}
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("save: %v", err)
	}

	srv := echo.New()
	NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(srv.Group(""))

	tests := []struct {
		path   string
		status int
		total  int
	}{
		{"/history", http.StatusOK, 1},
		{"/sessions/sess_h/history", http.StatusOK, 1},
		{"/sessions/other/history", http.StatusOK, 0},
		{"/history/" + e.ID, http.StatusOK, -1},
		{"/history/missing", http.StatusNotFound, -1},
		{"/history?limit=1", http.StatusOK, 1},
		{"/history?limit=abc", http.StatusBadRequest, -1},
		{"/sessions/sess_h/history?limit=0", http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.total < 0 {
				return
			}
			var resp ListResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Total != tt.total {
				t.Errorf("expected total %d, got %d", tt.total, resp.Total)
			}
		})
	}
}

func TestHandler_InvalidLimitCarriesMax(t *testing.T) {
	srv := echo.New()
	NewHandler(setupTestStore(t), slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(srv.Group(""))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=9999", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Code    string         `json:"code"`
		Details map[string]int `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "invalid_limit" || body.Details["max"] != maxLimit {
		t.Errorf("unexpected error body %s", rec.Body.String())
	}
}
