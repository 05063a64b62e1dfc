package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	SessionSecret string // Required: keys the session cookie cipher and face proofs

	AppOrigin      string   // Canonical browser origin; also the WebAuthn RP ID source (default: http://localhost:8080)
	AdminUsers     []string // Optional: usernames granted the admin surface
	TrustedProxies []string // Optional: proxy addresses whose X-Forwarded-For is authoritative

	FaceServiceURL  string // Face comparison provider base URL (default: http://localhost:5000)
	FaceMatchFloor  int    // Minimum acceptable confidence (default: 70)
	FaceMatchMargin int    // Margin added to provider-suggested thresholds (default: 5)

	EnforceDeviceChecks bool // Enable the device/IP duplicate heuristic (default: true)
	TrackVoterIP        bool // Record client addresses on votes (default: true)

	VoteRateWindow time.Duration // Casting rate-limit window (default: 1m)
	VoteRateMax    int           // Casting attempts allowed per window (default: 10)

	RedisAddr string // Optional: selects shared rate-limit and challenge stores

	DatabaseFile         string        // Path to SQLite database file (default: ./votegate.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		SessionSecret: os.Getenv("SESSION_SECRET"),

		AppOrigin:      getEnvOrDefault("VOTE_APP_ORIGIN", "http://localhost:8080"),
		AdminUsers:     splitList(os.Getenv("VOTE_ADMIN_USERS")),
		TrustedProxies: splitList(os.Getenv("VOTE_TRUSTED_PROXIES")),

		FaceServiceURL:  getEnvOrDefault("FACE_SERVICE_URL", "http://localhost:5000"),
		FaceMatchFloor:  getEnvIntOrDefault("FACE_MATCH_FLOOR", 70),
		FaceMatchMargin: getEnvIntOrDefault("FACE_MATCH_MARGIN", 5),

		EnforceDeviceChecks: getEnvBoolOrDefault("ENFORCE_DEVICE_CHECKS", true),
		TrackVoterIP:        getEnvBoolOrDefault("TRACK_VOTER_IP", true),

		VoteRateWindow: getEnvDurationOrDefault("VOTE_RATE_LIMIT_WINDOW", time.Minute),
		VoteRateMax:    getEnvIntOrDefault("VOTE_RATE_LIMIT_MAX", 10),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "votegate.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
