package audio

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FakeSource replays recorded samples as if captured live, then feeds silence until stopped.
type FakeSource struct {
	samples  []int16
	cfg      CaptureConfig
	realtime bool

	chunks    chan []int16
	audioDone chan struct{}
	stopCh    chan struct{}
	feedDone  chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

func NewFakeSource(samples []int16, cfg CaptureConfig, realtime bool) *FakeSource {
	cfg = cfg.withDefaults()
	return &FakeSource{
		samples:   samples,
		cfg:       cfg,
		realtime:  realtime,
		chunks:    make(chan []int16, cfg.Buffer),
		audioDone: make(chan struct{}),
		stopCh:    make(chan struct{}),
		feedDone:  make(chan struct{}),
	}
}

// NewFakeSourceFromWAV loads a 16-bit WAV file, resampling to the capture rate when needed.
func NewFakeSourceFromWAV(path string, cfg CaptureConfig, realtime bool) (*FakeSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	clip, err := DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if clip.Channels != 1 {
		return nil, fmt.Errorf("%s: expected mono audio, got %d channels", path, clip.Channels)
	}
	cfg = cfg.withDefaults()
	samples := ResampleInt16(clip.Samples, clip.SampleRate, cfg.SampleRate)
	return NewFakeSource(samples, cfg, realtime), nil
}

// AudioDone is closed once every recorded sample has been delivered.
func (f *FakeSource) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeSource) Chunks() <-chan []int16 { return f.chunks }

func (f *FakeSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return ErrSourceClosed
	}
	if f.started {
		return nil
	}
	f.started = true
	go f.feed()
	return nil
}

func (f *FakeSource) feed() {
	defer close(f.feedDone)

	var interval time.Duration
	if f.realtime {
		interval = time.Duration(f.cfg.ChunkSize) * time.Second / time.Duration(f.cfg.SampleRate)
	} else {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	size := f.cfg.ChunkSize
	pos := 0
	finished := false
	for {
		chunk := make([]int16, size)
		if pos < len(f.samples) {
			pos += copy(chunk, f.samples[pos:])
		} else if !finished {
			finished = true
			close(f.audioDone)
		}

		select {
		case f.chunks <- chunk:
		case <-f.stopCh:
			return
		}

		select {
		case <-ticker.C:
		case <-f.stopCh:
			return
		}
	}
}

func (f *FakeSource) Stop() error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	started := f.started
	close(f.stopCh)
	f.mu.Unlock()

	if started {
		<-f.feedDone
	}
	close(f.chunks)
	return nil
}

// Stopped reports whether Stop has been called.
func (f *FakeSource) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
