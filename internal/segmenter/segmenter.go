package segmenter

import (
	"errors"
	"time"

	"github.com/eleven-am/live-translate/internal/audio"
)

type Config struct {
	SampleRate       int
	ChunkSize        int
	SilenceThreshold float64
	MaxDuration      time.Duration
	TrailingSilence  time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate:       audio.DefaultSampleRate,
		ChunkSize:        audio.DefaultChunkSize,
		SilenceThreshold: 300,
		MaxDuration:      10 * time.Second,
		TrailingSilence:  1500 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return errors.New("sample rate must be positive")
	case c.ChunkSize <= 0:
		return errors.New("chunk size must be positive")
	case c.SilenceThreshold < 0:
		return errors.New("silence threshold must not be negative")
	case c.MaxDuration <= 0:
		return errors.New("max duration must be positive")
	case c.TrailingSilence <= 0:
		return errors.New("trailing silence must be positive")
	case c.MaxChunks() < 1:
		return errors.New("max duration is shorter than one chunk")
	}
	return nil
}

func (c Config) chunksPerSecond() float64 {
	return float64(c.SampleRate) / float64(c.ChunkSize)
}

// MaxChunks is the segment length ceiling in chunks, truncated toward zero.
func (c Config) MaxChunks() int {
	return int(c.chunksPerSecond() * c.MaxDuration.Seconds())
}

// SilenceChunks is the number of consecutive quiet chunks tolerated after sound.
func (c Config) SilenceChunks() int {
	return int(c.chunksPerSecond() * c.TrailingSilence.Seconds())
}

type Segment struct {
	Chunks     [][]int16
	SampleRate int
	Channels   int
	BitDepth   int
}

// Samples concatenates the chunks into one PCM run.
func (s *Segment) Samples() []int16 {
	n := 0
	for _, c := range s.Chunks {
		n += len(c)
	}
	out := make([]int16, 0, n)
	for _, c := range s.Chunks {
		out = append(out, c...)
	}
	return out
}

func (s *Segment) Duration() time.Duration {
	n := 0
	for _, c := range s.Chunks {
		n += len(c)
	}
	return time.Duration(n) * time.Second / time.Duration(s.SampleRate)
}

// WAV packages the segment for the wire.
func (s *Segment) WAV() ([]byte, error) {
	return audio.EncodeWAV(s.Samples(), s.SampleRate, s.Channels)
}

// Segmenter turns a chunk stream into utterance segments using mean absolute amplitude.
// It is not safe for concurrent use; the capture loop owns it.
type Segmenter struct {
	cfg           Config
	maxChunks     int
	silenceChunks int

	chunks   [][]int16
	hasSound bool
	quiet    int
}

func New(cfg Config) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{
		cfg:           cfg,
		maxChunks:     cfg.MaxChunks(),
		silenceChunks: cfg.SilenceChunks(),
	}, nil
}

func (s *Segmenter) Config() Config {
	return s.cfg
}

// IsLoud reports whether a chunk's mean absolute amplitude exceeds the threshold.
func (s *Segmenter) IsLoud(chunk []int16) bool {
	return audio.MeanAmplitude(chunk) > s.cfg.SilenceThreshold
}

// Push feeds one chunk with the current recording gate. It returns a sealed segment
// when one is ready to transmit. Chunks pushed with the gate closed are dropped.
func (s *Segmenter) Push(chunk []int16, gate bool) (*Segment, bool) {
	if !gate {
		if len(s.chunks) == 0 {
			return nil, false
		}
		return s.seal()
	}

	c := make([]int16, len(chunk))
	copy(c, chunk)
	s.chunks = append(s.chunks, c)

	if s.IsLoud(c) {
		s.hasSound = true
		s.quiet = 0
	} else {
		s.quiet++
		if s.hasSound && s.quiet > s.silenceChunks {
			return s.seal()
		}
	}

	if len(s.chunks) >= s.maxChunks {
		return s.seal()
	}
	return nil, false
}

// Pending is the number of chunks in the open candidate.
func (s *Segmenter) Pending() int {
	return len(s.chunks)
}

// Discard drops the open candidate without emitting it.
func (s *Segmenter) Discard() {
	s.reset()
}

func (s *Segmenter) seal() (*Segment, bool) {
	defer s.reset()
	if !s.hasSound {
		return nil, false
	}
	return &Segment{
		Chunks:     s.chunks,
		SampleRate: s.cfg.SampleRate,
		Channels:   1,
		BitDepth:   audio.BitDepth,
	}, true
}

func (s *Segmenter) reset() {
	s.chunks = nil
	s.hasSound = false
	s.quiet = 0
}
