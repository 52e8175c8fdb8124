package transcription

import (
	"context"
	"sync"
	"time"

	"github.com/eleven-am/live-translate/internal/audio"
)

type FakeCall struct {
	Lang    string
	Samples int
}

// Fake answers every call with a fixed text, error and delay.
type Fake struct {
	text  string
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls []FakeCall
}

func NewFake(text string, err error) *Fake {
	return &Fake{text: text, err: err}
}

func (f *Fake) WithDelay(d time.Duration) *Fake {
	f.delay = d
	return f
}

func (f *Fake) Transcribe(ctx context.Context, clip audio.Clip, lang string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Lang: lang, Samples: len(clip.Samples)})
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}
