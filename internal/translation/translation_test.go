package translation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMyMemory_Translate(t *testing.T) {
	var gotQ, gotPair, gotEmail string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("q")
		gotPair = r.URL.Query().Get("langpair")
		gotEmail = r.URL.Query().Get("de")
		w.Write([]byte(`{"responseData":{"translatedText":"สวัสดี"},"responseStatus":200}`))
	}))
	defer server.Close()

	m := NewMyMemory(MyMemoryConfig{URL: server.URL, Email: "ops@example.com"}, testLogger())
	out, err := m.Translate(context.Background(), "hello", "en", "th")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "สวัสดี" {
		t.Errorf("expected Thai greeting, got %q", out)
	}
	if gotQ != "hello" || gotPair != "en|th" {
		t.Errorf("unexpected query q=%q langpair=%q", gotQ, gotPair)
	}
	if gotEmail != "ops@example.com" {
		t.Errorf("expected email parameter, got %q", gotEmail)
	}
}

func TestMyMemory_SameLanguageSkipsCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	m := NewMyMemory(MyMemoryConfig{URL: server.URL}, testLogger())
	out, err := m.Translate(context.Background(), "hello", "en", "en")
	if err != nil || out != "hello" {
		t.Errorf("expected identity, got %q (%v)", out, err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no API call, got %d", calls.Load())
	}
}

func TestMyMemory_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusServiceUnavailable, ""},
		{"api status number", http.StatusOK, `{"responseData":{"translatedText":""},"responseStatus":403,"responseDetails":"INVALID LANGUAGE PAIR"}`},
		{"api status string", http.StatusOK, `{"responseData":{"translatedText":""},"responseStatus":"429","responseDetails":"QUOTA"}`},
		{"bad json", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewMyMemory(MyMemoryConfig{URL: server.URL}, testLogger()).Translate(context.Background(), "hello", "en", "th")
			if !errors.Is(err, ErrFailed) {
				t.Errorf("expected ErrFailed, got %v", err)
			}
		})
	}
}

func TestMyMemory_CancelledContext(t *testing.T) {
	m := NewMyMemory(MyMemoryConfig{URL: "http://127.0.0.1:1", RequestsPerSec: 1, Burst: 1}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Translate(ctx, "hello", "en", "th"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMyMemory_RateLimitPastDeadlineIsTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"responseData":{"translatedText":"hola"},"responseStatus":200}`))
	}))
	defer server.Close()

	m := NewMyMemory(MyMemoryConfig{URL: server.URL, RequestsPerSec: 0.01, Burst: 1}, testLogger())
	if _, err := m.Translate(context.Background(), "hello", "en", "es"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := m.Translate(ctx, "hello", "en", "es")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected the limited call to skip the request, got %d calls", calls.Load())
	}
}

func TestStub(t *testing.T) {
	s := NewStub(nil)
	ctx := context.Background()

	out, _ := s.Translate(ctx, "hello", "en", "th")
	if out != "สวัสดี" {
		t.Errorf("expected known phrase, got %q", out)
	}
	out, _ = s.Translate(ctx, "good morning", "en", "es")
	if out != "[es] good morning" {
		t.Errorf("expected prefixed fallback, got %q", out)
	}
	out, _ = s.Translate(ctx, "hello", "en", "en")
	if out != "hello" {
		t.Errorf("expected identity, got %q", out)
	}
}
