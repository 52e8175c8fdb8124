package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/eleven-am/live-translate/internal/audio"
)

// Client posts utterances to an OpenAI-compatible transcription endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "transcription"),
	}
}

func (c *Client) Transcribe(ctx context.Context, clip audio.Clip, lang string) (string, error) {
	samples := clip.Samples
	if clip.Channels == 1 && clip.SampleRate != c.cfg.SampleRate {
		samples = audio.ResampleInt16(samples, clip.SampleRate, c.cfg.SampleRate)
	}
	wav, err := audio.EncodeWAV(samples, c.cfg.SampleRate, max(clip.Channels, 1))
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(wav); err != nil {
		return "", err
	}
	_ = writer.WriteField("model", c.cfg.Model)
	_ = writer.WriteField("response_format", "json")
	if lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("transcription API error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("transcription response parse error: %w", err)
	}

	text := strings.TrimSpace(r.Text)
	c.logger.Debug("transcribed", "lang", lang, "seconds", clip.Duration(), "chars", len(text))
	return text, nil
}
