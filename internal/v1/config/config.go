// Package config validates environment configuration the way the teacher's
// config.ValidateEnv does: required variables collected, every error joined
// into one message, optional variables defaulted, then the final result
// logged with secrets redacted.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/logging"
)

// Config holds validated environment configuration for the server.
type Config struct {
	// Required
	Port string

	// Optional, defaulted
	GoEnv          string
	LogLevel       string
	AllowedOrigins []string

	// Question provider
	QuestionSourceURL        string
	QuestionSourceTimeoutMs  int

	// Rate limits (ulule/limiter formatted rate strings, e.g. "100-M")
	RateLimitAPIPublic string
	RateLimitAPIRooms  string
	RateLimitWSIP      string

	// Room lifecycle
	RoomCleanupGraceMs int

	// Tracing (optional — empty means spans are created but dropped)
	OtelCollectorAddr string
}

// ValidateEnv reads os.Environ via the given lookup function, validates
// required variables, defaults optional ones, and returns the assembled
// Config. lookup is typically os.LookupEnv; tests supply a fake.
func ValidateEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	var errs []string

	port, ok := lookup("PORT")
	if !ok || port == "" {
		errs = append(errs, "PORT is required")
	} else if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got %q)", port))
	} else {
		cfg.Port = port
	}

	cfg.GoEnv = getOrDefault(lookup, "GO_ENV", "production")
	cfg.LogLevel = getOrDefault(lookup, "LOG_LEVEL", "info")

	origins := getOrDefault(lookup, "ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	cfg.QuestionSourceURL = getOrDefault(lookup, "QUESTION_SOURCE_URL", "")

	timeoutRaw := getOrDefault(lookup, "QUESTION_SOURCE_TIMEOUT_MS", "2000")
	if n, err := strconv.Atoi(timeoutRaw); err != nil || n < 1 {
		errs = append(errs, fmt.Sprintf("QUESTION_SOURCE_TIMEOUT_MS must be a positive integer (got %q)", timeoutRaw))
	} else {
		cfg.QuestionSourceTimeoutMs = n
	}

	cfg.RateLimitAPIPublic = getOrDefault(lookup, "RATE_LIMIT_API_PUBLIC", "100-M")
	cfg.RateLimitAPIRooms = getOrDefault(lookup, "RATE_LIMIT_API_ROOMS", "100-M")
	cfg.RateLimitWSIP = getOrDefault(lookup, "RATE_LIMIT_WS_IP", "200-M")

	graceRaw := getOrDefault(lookup, "ROOM_CLEANUP_GRACE_MS", "5000")
	if n, err := strconv.Atoi(graceRaw); err != nil || n < 0 {
		errs = append(errs, fmt.Sprintf("ROOM_CLEANUP_GRACE_MS must be a non-negative integer (got %q)", graceRaw))
	} else {
		cfg.RoomCleanupGraceMs = n
	}

	cfg.OtelCollectorAddr = getOrDefault(lookup, "OTEL_COLLECTOR_ADDR", "")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidated(cfg)
	return cfg, nil
}

func getOrDefault(lookup func(string) (string, bool), key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func logValidated(cfg *Config) {
	mode := "fallback-deck-only"
	if cfg.QuestionSourceURL != "" {
		mode = redact(cfg.QuestionSourceURL)
	}
	logging.L().Info("environment configuration validated",
		zap.String("port", cfg.Port),
		zap.String("go_env", cfg.GoEnv),
		zap.String("log_level", cfg.LogLevel),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
		zap.String("question_source", mode),
		zap.Int("question_source_timeout_ms", cfg.QuestionSourceTimeoutMs),
		zap.Int("room_cleanup_grace_ms", cfg.RoomCleanupGraceMs),
	)
}

// redact keeps only a URL's scheme and host, dropping path/query that might
// carry an API key.
func redact(url string) string {
	if idx := strings.Index(url, "://"); idx != -1 {
		rest := url[idx+3:]
		if slash := strings.Index(rest, "/"); slash != -1 {
			return url[:idx+3] + rest[:slash] + "/***"
		}
	}
	return url
}
