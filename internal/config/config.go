// Package config loads server configuration from environment variables.
//
// Required variables:
//   - CONFIG_PATH: path to the declarative rule-set document (.json, .yaml,
//     or .yml).
//
// Optional variables:
//   - HTTP_ADDR: listen address for the HTTP server (default ":8080").
//   - LOG_LEVEL: minimum log level (default "info").
//   - WATCH_CONFIG: watch the document and reload on change
//     (default "false").
//   - RELOAD_DEBOUNCE: quiet period before a watched change triggers a
//     reload (default "200ms", must be > 0 if set).
//   - MAX_JSON_BODY_SIZE: max HTTP JSON request body size in bytes
//     (default "1048576", must be > 0 if set).
//   - RATE_LIMIT: per-IP evaluation requests per minute; 0 disables rate
//     limiting (default "0", must be >= 0 if set).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr              = ":8080"
	defaultReloadDebounce        = 200 * time.Millisecond
	defaultMaxJSONBodySize int64 = 1 << 20 // 1MB
)

// Config holds the runtime configuration for the gatez server.
type Config struct {
	ConfigPath      string
	HTTPAddr        string
	LogLevel        string
	WatchConfig     bool
	ReloadDebounce  time.Duration
	MaxJSONBodySize int64
	RateLimit       int
}

// Load reads configuration from environment variables, applying defaults
// where appropriate. It returns an error if required variables are missing
// or if optional values fail validation.
func Load() (Config, error) {
	configPath := strings.TrimSpace(os.Getenv("CONFIG_PATH"))
	if configPath == "" {
		return Config{}, errors.New("CONFIG_PATH is required")
	}

	watchConfig := false
	if value := strings.TrimSpace(os.Getenv("WATCH_CONFIG")); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse WATCH_CONFIG: %w", err)
		}
		watchConfig = parsed
	}

	reloadDebounce := defaultReloadDebounce
	if value := strings.TrimSpace(os.Getenv("RELOAD_DEBOUNCE")); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse RELOAD_DEBOUNCE: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("RELOAD_DEBOUNCE must be > 0")
		}
		reloadDebounce = parsed
	}

	maxJSONBodySize := defaultMaxJSONBodySize
	if v := strings.TrimSpace(os.Getenv("MAX_JSON_BODY_SIZE")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return Config{}, errors.New("MAX_JSON_BODY_SIZE must be a positive integer (bytes)")
		}
		maxJSONBodySize = n
	}

	rateLimit := 0
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, errors.New("RATE_LIMIT must be a non-negative integer")
		}
		rateLimit = n
	}

	return Config{
		ConfigPath:      configPath,
		HTTPAddr:        envOrDefault("HTTP_ADDR", defaultHTTPAddr),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		WatchConfig:     watchConfig,
		ReloadDebounce:  reloadDebounce,
		MaxJSONBodySize: maxJSONBodySize,
		RateLimit:       rateLimit,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
