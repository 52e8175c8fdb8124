package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultMyMemoryURL = "https://api.mymemory.translated.net/get"

type MyMemoryConfig struct {
	URL            string
	Email          string
	RequestsPerSec float64
	Burst          int
	Timeout        time.Duration
}

// MyMemory calls the public MyMemory translation API.
type MyMemory struct {
	cfg     MyMemoryConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

func NewMyMemory(cfg MyMemoryConfig, logger *slog.Logger) *MyMemory {
	if cfg.URL == "" {
		cfg.URL = DefaultMyMemoryURL
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &MyMemory{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		logger:  logger.With("component", "translation"),
	}
}

func (m *MyMemory) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang || strings.TrimSpace(text) == "" {
		return text, nil
	}
	if err := m.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		// the limiter refuses early when the next token lands past the deadline
		return "", fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}

	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", sourceLang+"|"+targetLang)
	if m.cfg.Email != "" {
		q.Set("de", m.cfg.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.URL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := m.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrFailed, resp.StatusCode)
	}

	var r myMemoryResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrFailed, err)
	}
	if status := strings.Trim(string(r.ResponseStatus), `"`); status != "200" {
		return "", fmt.Errorf("%w: status %s: %s", ErrFailed, status, r.ResponseDetails)
	}

	m.logger.Debug("translated", "langpair", sourceLang+"|"+targetLang, "chars", len(text))
	return r.ResponseData.TranslatedText, nil
}
