package audio

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	result := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

type MalgoSource struct {
	cfg    CaptureConfig
	logger *slog.Logger

	ctx    *malgo.AllocatedContext
	device *malgo.Device
	chunks chan []int16
	chunk  chunker

	mu      sync.Mutex
	stopped bool
	dropped atomic.Uint64
}

// NewMalgoSource opens the capture device. Failure here is fatal for the caller.
func NewMalgoSource(cfg CaptureConfig, logger *slog.Logger) (*MalgoSource, error) {
	cfg = cfg.withDefaults()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}

	s := &MalgoSource{
		cfg:    cfg,
		logger: logger.With("component", "capture"),
		ctx:    ctx,
		chunks: make(chan []int16, cfg.Buffer),
		chunk:  chunker{size: cfg.ChunkSize},
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)

	if cfg.DeviceID != "" {
		idBytes, err := hex.DecodeString(cfg.DeviceID)
		if err != nil {
			s.freeContext()
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			s.onData(input)
		},
	})
	if err != nil {
		s.freeContext()
		return nil, fmt.Errorf("open capture device: %w", err)
	}
	s.device = dev
	return s, nil
}

func (s *MalgoSource) onData(input []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.chunk.push(PCMBytesToInt16(input), func(chunk []int16) {
		select {
		case s.chunks <- chunk:
		default:
			if n := s.dropped.Add(1); n%50 == 1 {
				s.logger.Warn("chunk buffer full, dropping audio", "dropped", n)
			}
		}
	})
}

func (s *MalgoSource) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	s.logger.Info("capture started", "sample_rate", s.cfg.SampleRate, "chunk_size", s.cfg.ChunkSize)
	return nil
}

func (s *MalgoSource) Chunks() <-chan []int16 {
	return s.chunks
}

func (s *MalgoSource) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	err := s.device.Stop()
	s.device.Uninit()
	s.freeContext()
	close(s.chunks)
	s.logger.Info("capture stopped", "dropped", s.dropped.Load())
	return err
}

func (s *MalgoSource) freeContext() {
	_ = s.ctx.Uninit()
	s.ctx.Free()
}
