package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	APIBaseURL string
	WSBaseURL  string // falls back to APIBaseURL when WS_URL is unset

	StateDir string // empty means the default under the user home dir

	HTTPTimeout    time.Duration
	RateLimitRPS   int
	RateLimitBurst int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	api := getEnv("API_URL", "http://localhost:5000")
	return &Config{
		APIBaseURL:     api,
		WSBaseURL:      getEnv("WS_URL", api),
		StateDir:       getEnv("STATE_DIR", ""),
		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
