package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	// Resolution service the daemon acquires streams from.
	ResolutionBaseURL string
	ResolutionTimeout time.Duration

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	PollInterval      time.Duration
	SettleDelay       time.Duration
	HeartbeatInterval time.Duration
	MaxPollFailures   int

	AllowedOrigins []string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		ResolutionBaseURL: getEnv("RESOLUTION_BASE_URL", "http://localhost:9090"),
		ResolutionTimeout: getEnvDuration("RESOLUTION_TIMEOUT_MS", 15*time.Second),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DB", "streampilot"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           int(getEnvInt64("REDIS_DB", 0)),
		CacheTTL:          getEnvDuration("CACHE_TTL_MS", 10*time.Minute),
		PollInterval:      getEnvDuration("POLL_INTERVAL_MS", 2*time.Second),
		SettleDelay:       getEnvDuration("SETTLE_DELAY_MS", 3*time.Second),
		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL_MS", 30*time.Second),
		MaxPollFailures:   int(getEnvInt64("MAX_POLL_FAILURES", 3)),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

// getEnvDuration reads a millisecond value. Zero or invalid values fall
// back to the default.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	ms := getEnvInt64(key, 0)
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
