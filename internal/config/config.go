// Package config reads service settings from the environment, loading a .env
// file first when one is present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service settings.
type Config struct {
	Port            string
	RosterPath      string
	DatabaseURL     string
	TursoURL        string
	TursoAuthToken  string
	Allocation      string
	RNG             string
	Seed            int64
	SessionTTL      time.Duration
	JanitorInterval time.Duration
	TelegramToken   string
	TelegramChatID  int64
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		RosterPath:     getEnv("ROSTER_PATH", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		TursoURL:       getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken: getEnv("TURSO_AUTH_TOKEN", ""),
		Allocation:     getEnv("RAFFLE_ALLOCATION", "shuffled"),
		RNG:            getEnv("RAFFLE_RNG", "math"),
		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
	}

	var err error
	if cfg.Seed, err = getInt("RAFFLE_SEED", 0); err != nil {
		return cfg, err
	}
	if cfg.TelegramChatID, err = getInt("TELEGRAM_CHAT_ID", 0); err != nil {
		return cfg, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", time.Hour); err != nil {
		return cfg, err
	}
	if cfg.JanitorInterval, err = getDuration("JANITOR_INTERVAL", 10*time.Minute); err != nil {
		return cfg, err
	}

	switch cfg.RNG {
	case "math", "crypto":
	default:
		return cfg, fmt.Errorf("RAFFLE_RNG must be math or crypto, got %q", cfg.RNG)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
