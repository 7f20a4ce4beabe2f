package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every value the server reads from the environment.
// Defaults are chosen so a bare `GEMINI_API_KEY=... go run .` works.
type Config struct {
	Port string

	RedisHost     string
	RedisPassword string

	GeminiAPIKey          string
	GeminiModel           string
	GeminiTemperature     float32
	GeminiMaxOutputTokens int

	// SessionTTL bounds how long a session snapshot survives in the
	// store after its last transition.
	SessionTTL   time.Duration
	HistoryLimit int
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		RedisHost:     getEnv("REDIS_HOST", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		// Low temperature biases toward factual, repeatable phrasing.
		GeminiTemperature:     float32(getFloat("GEMINI_TEMPERATURE", 0.2)),
		GeminiMaxOutputTokens: getInt("GEMINI_MAX_OUTPUT_TOKENS", 0),

		SessionTTL:   getDuration("SESSION_TTL", 30*time.Minute),
		HistoryLimit: getInt("HISTORY_LIMIT", 20),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
