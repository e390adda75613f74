// Package config loads runtime configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime knob. All fields have working defaults so
// the service starts with nothing but a stream URL and a model key.
type Config struct {
	Port int

	// Capture
	StreamURL       string
	CaptureInterval time.Duration
	CaptureTimeout  time.Duration

	// Frame retention
	BufferLimit     int
	FreshnessWindow time.Duration

	// Analysis caching
	ResponseCacheTTL time.Duration
	LatestResultTTL  time.Duration

	// Vision / language model
	ModelEndpoint string
	ModelAPIKey   string
	ModelName     string
	ModelTimeout  time.Duration
	MaxImageDim   int

	// Vehicle counting service
	DetectorEndpoint string
	DetectorTimeout  time.Duration

	// Persistence sink; empty path disables it entirely
	DatabasePath string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present and silently skipped when not.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:             getEnvAsInt("PORT", 8080),
		StreamURL:        getEnv("STREAM_URL", ""),
		CaptureInterval:  getEnvAsDuration("CAPTURE_INTERVAL", 3*time.Minute),
		CaptureTimeout:   getEnvAsDuration("CAPTURE_TIMEOUT", 30*time.Second),
		BufferLimit:      getEnvAsInt("BUFFER_LIMIT", 12),
		FreshnessWindow:  getEnvAsDuration("FRESHNESS_WINDOW", 10*time.Minute),
		ResponseCacheTTL: getEnvAsDuration("RESPONSE_CACHE_TTL", 120*time.Second),
		LatestResultTTL:  getEnvAsDuration("LATEST_RESULT_TTL", 180*time.Second),
		ModelEndpoint:    getEnv("MODEL_ENDPOINT", "https://api.openai.com/v1"),
		ModelAPIKey:      getEnv("MODEL_API_KEY", ""),
		ModelName:        getEnv("MODEL_NAME", "gpt-4o-mini"),
		ModelTimeout:     getEnvAsDuration("MODEL_TIMEOUT", 60*time.Second),
		MaxImageDim:      getEnvAsInt("MAX_IMAGE_DIM", 1024),
		DetectorEndpoint: getEnv("DETECTOR_ENDPOINT", ""),
		DetectorTimeout:  getEnvAsDuration("DETECTOR_TIMEOUT", 30*time.Second),
		DatabasePath:     getEnv("DATABASE_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
