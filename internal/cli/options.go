package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eleven-am/live-translate/internal/audio"
	"github.com/eleven-am/live-translate/internal/client"
	"github.com/eleven-am/live-translate/internal/language"
	"github.com/eleven-am/live-translate/internal/protocol"
	"github.com/eleven-am/live-translate/internal/segmenter"
)

const (
	envPrefix  = "LT"
	configName = "live-translate"
)

// Options is the resolved client configuration: flags, then LT_* env vars, then the config file.
type Options struct {
	Server          string
	Source          string
	Target          string
	Device          string
	WAV             string
	Threshold       float64
	MaxDuration     time.Duration
	TrailingSilence time.Duration
	ChunkSize       int
	SampleRate      int
	LogFile         string
	LogLevel        string
	Plain           bool
	Record          bool
	Interactive     bool
}

func registerFlags(fs *pflag.FlagSet) {
	seg := segmenter.DefaultConfig()
	fs.String("server", client.DefaultServerURL, "relay websocket URL")
	fs.String("source", language.DefaultClientSource, "spoken language ("+strings.Join(language.Codes(), ", ")+")")
	fs.String("target", language.DefaultClientTarget, "translation language")
	fs.String("device", "", "capture device id (see the devices command)")
	fs.String("wav", "", "replay a 16-bit mono WAV file instead of the microphone")
	fs.Float64("threshold", seg.SilenceThreshold, "mean amplitude above which a chunk counts as sound")
	fs.Duration("max-duration", seg.MaxDuration, "longest segment sent in one piece")
	fs.Duration("trailing-silence", seg.TrailingSilence, "quiet time that ends a segment")
	fs.Int("chunk-size", seg.ChunkSize, "samples per captured chunk")
	fs.Int("sample-rate", seg.SampleRate, "capture sample rate in Hz")
	fs.String("log-file", "", "write logs to this file (discarded when empty)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Bool("plain", false, "print line updates instead of the terminal UI")
	fs.Bool("record", false, "start with recording enabled")
	fs.BoolP("interactive", "i", false, "pick the device and languages from a prompt")
}

func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

func loadOptions(v *viper.Viper) Options {
	return Options{
		Server:          v.GetString("server"),
		Source:          v.GetString("source"),
		Target:          v.GetString("target"),
		Device:          v.GetString("device"),
		WAV:             v.GetString("wav"),
		Threshold:       v.GetFloat64("threshold"),
		MaxDuration:     v.GetDuration("max-duration"),
		TrailingSilence: v.GetDuration("trailing-silence"),
		ChunkSize:       v.GetInt("chunk-size"),
		SampleRate:      v.GetInt("sample-rate"),
		LogFile:         v.GetString("log-file"),
		LogLevel:        v.GetString("log-level"),
		Plain:           v.GetBool("plain"),
		Record:          v.GetBool("record"),
		Interactive:     v.GetBool("interactive"),
	}
}

func (o Options) Languages() protocol.SessionConfig {
	return protocol.SessionConfig{SourceLang: o.Source, TargetLang: o.Target}
}

func (o Options) SegmenterConfig() segmenter.Config {
	return segmenter.Config{
		SampleRate:       o.SampleRate,
		ChunkSize:        o.ChunkSize,
		SilenceThreshold: o.Threshold,
		MaxDuration:      o.MaxDuration,
		TrailingSilence:  o.TrailingSilence,
	}
}

func (o Options) CaptureConfig() audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate: o.SampleRate,
		Channels:   1,
		ChunkSize:  o.ChunkSize,
		DeviceID:   o.Device,
	}
}

func (o Options) ClientConfig() client.Config {
	return client.Config{
		ServerURL:       o.Server,
		Languages:       o.Languages(),
		Segmenter:       o.SegmenterConfig(),
		RefreshInterval: client.DefaultRefreshInterval,
	}
}

func (o Options) Validate() error {
	if !strings.HasPrefix(o.Server, "ws://") && !strings.HasPrefix(o.Server, "wss://") {
		return fmt.Errorf("server %q must be a ws:// or wss:// URL", o.Server)
	}
	if err := o.Languages().Validate(); err != nil {
		return err
	}
	if err := o.SegmenterConfig().Validate(); err != nil {
		return fmt.Errorf("segmenter: %w", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger writes text logs to path. The terminal belongs to the UI, so an empty path discards logs.
func newLogger(path, level string) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f.Close, nil
}
