package bootstrap

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string
	GRPCAddr   string
	LogLevel   string

	MaxMessageSize int64
	CallTimeout    time.Duration
	QueueDepth     int

	Workers      int
	QueueTimeout time.Duration

	STTProvider string
	STTURL      string
	STTAPIKey   string
	STTModel    string

	TranslateProvider string
	MyMemoryURL       string
	MyMemoryEmail     string
	TranslateRPS      float64

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HealthInterval time.Duration
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", "localhost:8765"),
		GRPCAddr:   getEnv("GRPC_ADDR", ":50051"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		MaxMessageSize: int64(getEnvInt("MAX_MESSAGE_SIZE", 4<<20)),
		CallTimeout:    getEnvDuration("CALL_TIMEOUT", 30*time.Second),
		QueueDepth:     getEnvInt("QUEUE_DEPTH", 8),

		Workers:      getEnvInt("WORKERS", runtime.NumCPU()),
		QueueTimeout: getEnvDuration("QUEUE_TIMEOUT", 5*time.Second),

		STTProvider: getEnv("STT_PROVIDER", "http"),
		STTURL:      getEnv("STT_URL", ""),
		STTAPIKey:   getEnv("STT_API_KEY", ""),
		STTModel:    getEnv("STT_MODEL", ""),

		TranslateProvider: getEnv("TRANSLATE_PROVIDER", "mymemory"),
		MyMemoryURL:       getEnv("MYMEMORY_URL", ""),
		MyMemoryEmail:     getEnv("MYMEMORY_EMAIL", ""),
		TranslateRPS:      getEnvFloat("TRANSLATE_RPS", 5),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		HealthInterval: getEnvDuration("HEALTH_INTERVAL", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
