package transcription

import (
	"context"
	"errors"

	"github.com/eleven-am/live-translate/internal/audio"
)

// ErrUnavailable means the recognition backend could not be reached or refused the request.
var ErrUnavailable = errors.New("speech recognition service unavailable")

// Transcriber turns one utterance into text. An empty string means nothing intelligible was heard.
type Transcriber interface {
	Transcribe(ctx context.Context, clip audio.Clip, lang string) (string, error)
}
