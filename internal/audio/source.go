package audio

import "errors"

const (
	DefaultSampleRate = 16000
	DefaultChunkSize  = 1024
	defaultBuffer     = 64
)

var ErrSourceClosed = errors.New("audio source closed")

// Source delivers fixed-size chunks of 16-bit mono samples from a goroutine it owns.
// The chunk channel is closed after Stop.
type Source interface {
	Start() error
	Chunks() <-chan []int16
	Stop() error
}

type CaptureConfig struct {
	SampleRate int
	Channels   int
	ChunkSize  int
	DeviceID   string
	Buffer     int
}

func (c CaptureConfig) withDefaults() CaptureConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Buffer <= 0 {
		c.Buffer = defaultBuffer
	}
	return c
}

type DeviceInfo struct {
	ID   string
	Name string
}

// chunker regroups arbitrary-length sample runs into fixed chunks.
type chunker struct {
	size    int
	pending []int16
}

func (c *chunker) push(samples []int16, emit func([]int16)) {
	c.pending = append(c.pending, samples...)
	for len(c.pending) >= c.size {
		chunk := make([]int16, c.size)
		copy(chunk, c.pending[:c.size])
		c.pending = c.pending[c.size:]
		emit(chunk)
	}
}
