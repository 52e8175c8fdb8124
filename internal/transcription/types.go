package transcription

import "time"

const (
	DefaultURL        = "https://api.openai.com/v1/audio/transcriptions"
	DefaultModel      = "whisper-1"
	DefaultSampleRate = 16000
)

type Config struct {
	URL        string
	APIKey     string
	Model      string
	SampleRate int
	Timeout    time.Duration
}

type response struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}
