package session

import (
	"strconv"
	"time"
)

type Status string

const (
	StatusActive        Status = "active"
	StatusEnded         Status = "ended"
	StatusProtocolError Status = "protocol_error"
	StatusError         Status = "error"
)

// Session is the record kept for one relay connection.
type Session struct {
	ID           string    `json:"id"`
	RemoteAddr   string    `json:"remote_addr"`
	SourceLang   string    `json:"source_lang"`
	TargetLang   string    `json:"target_lang"`
	Status       Status    `json:"status"`
	CloseReason  string    `json:"close_reason,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func (s *Session) RedisKey() string {
	return sessionKey(s.ID)
}

func sessionKey(id string) string {
	return "session:" + id
}

type Metrics struct {
	Date         string `json:"date"`
	Hour         int    `json:"hour"`
	Sessions     int64  `json:"sessions"`
	Segments     int64  `json:"segments"`
	Results      int64  `json:"results"`
	ErrorCount   int64  `json:"error_count"`
	Rejected     int64  `json:"rejected"`
	AvgLatencyMs int64  `json:"avg_latency_ms"`
}

const (
	FieldSessions = "sessions"
	FieldSegments = "segments"
	FieldResults  = "results"
	FieldErrors   = "error_count"
	FieldRejected = "rejected"
)

func MetricsRedisKey(date string, hour int) string {
	return "relay:metrics:" + date + ":" + strconv.Itoa(hour)
}
