package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/erazemk/koda/internal/scan"
)

// Config holds the environment-driven settings. Command-line flags in
// main take precedence over these.
type Config struct {
	Addr      string
	DBPath    string
	BaseURL   string
	LogPath   string
	QueueSize int
}

// Load reads .env (if present) and the KODA_* environment variables.
func Load() *Config {
	_ = godotenv.Load() // no .env is fine in production

	return &Config{
		Addr:      getEnv("KODA_ADDR", ":8080"),
		DBPath:    getEnv("KODA_DB", "koda.sqlite3"),
		BaseURL:   getEnv("KODA_BASE_URL", "http://localhost:8080"),
		LogPath:   getEnv("KODA_LOG", ""),
		QueueSize: getEnvInt("KODA_QUEUE_SIZE", scan.DefaultQueueSize),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
