package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the planner client.
type Config struct {
	APIBaseURL        string
	APITimeout        time.Duration
	TelegramToken     string
	HTTPAddr          string
	DatabaseURL       string
	SessionStore      string
	RedisURL          string
	ReportInterval    time.Duration
	ReportAt          string
	CelebrateDuration time.Duration
	Log               LogConfig
}

// LogConfig mirrors logger.Config so the logger package stays free of env parsing.
type LogConfig struct {
	Level  string
	Format string
	Output string
	File   string
}

const (
	SessionStoreDB    = "db"
	SessionStoreRedis = "redis"
)

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		APIBaseURL:        strings.TrimRight(env("API_BASE_URL"), "/"),
		APITimeout:        parseSeconds(env("API_TIMEOUT_SECONDS")),
		TelegramToken:     env("TELEGRAM_TOKEN"),
		HTTPAddr:          env("HTTP_ADDR"),
		DatabaseURL:       env("DATABASE_URL"),
		SessionStore:      strings.ToLower(env("SESSION_STORE")),
		RedisURL:          env("REDIS_URL"),
		ReportInterval:    parseInterval(env("REPORT_INTERVAL_HOURS")),
		ReportAt:          env("REPORT_AT"),
		CelebrateDuration: parseMillis(env("CELEBRATE_MS")),
		Log: LogConfig{
			Level:  strings.ToLower(env("LOG_LEVEL")),
			Format: strings.ToLower(env("LOG_FORMAT")),
			Output: strings.ToLower(env("LOG_OUTPUT")),
			File:   env("LOG_FILE"),
		},
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:8000/api"
	}
	if cfg.APITimeout == 0 {
		cfg.APITimeout = 10 * time.Second
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "calendar_planner.db"
	}
	if cfg.SessionStore == "" {
		cfg.SessionStore = SessionStoreDB
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://localhost:6379/0"
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}
	if cfg.CelebrateDuration == 0 {
		cfg.CelebrateDuration = time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "logs/calendar-planner.log"
	}

	if cfg.SessionStore != SessionStoreDB && cfg.SessionStore != SessionStoreRedis {
		return cfg, fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreDB, SessionStoreRedis, cfg.SessionStore)
	}
	if cfg.TelegramToken == "" && cfg.HTTPAddr == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN or HTTP_ADDR is required")
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parseSeconds(raw string) time.Duration {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func parseMillis(raw string) time.Duration {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}
