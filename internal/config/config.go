package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"plant-care/internal/model"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config keeps runtime settings for the care engine.
type Config struct {
	DatabaseURL   string
	TelegramToken string

	ReminderTime    model.ClockTime
	RemindersPaused bool
	Location        *time.Location

	HTTPAddr string
	APIToken string

	PreferencesBackend string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	LogLevel     string
	LogDir       string
	OTLPEndpoint string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:        env("DATABASE_URL"),
		TelegramToken:      env("TELEGRAM_TOKEN"),
		HTTPAddr:           env("HTTP_ADDR"),
		APIToken:           env("API_TOKEN"),
		PreferencesBackend: strings.ToLower(env("PREFERENCES_BACKEND")),
		RedisAddr:          env("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		LogLevel:           env("LOG_LEVEL"),
		LogDir:             env("LOG_DIR"),
		OTLPEndpoint:       env("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "plant_care.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = "127.0.0.1:8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	reminderTime := env("REMINDER_TIME")
	if reminderTime == "" {
		reminderTime = "09:00"
	}
	at, err := model.ParseClockTime(reminderTime)
	if err != nil {
		return cfg, fmt.Errorf("REMINDER_TIME: %w", err)
	}
	cfg.ReminderTime = at

	if raw := env("REMINDERS_PAUSED"); raw != "" {
		paused, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("REMINDERS_PAUSED must be a boolean, got %q", raw)
		}
		cfg.RemindersPaused = paused
	}

	cfg.Location = time.Local
	if tz := env("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	switch cfg.PreferencesBackend {
	case "":
		cfg.PreferencesBackend = BackendSQLite
	case BackendSQLite:
	case BackendRedis:
		if cfg.RedisAddr == "" {
			cfg.RedisAddr = "localhost:6379"
		}
	default:
		return cfg, fmt.Errorf("PREFERENCES_BACKEND must be %q or %q, got %q", BackendSQLite, BackendRedis, cfg.PreferencesBackend)
	}

	if raw := env("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil || db < 0 {
			return cfg, fmt.Errorf("REDIS_DB must be a non-negative integer, got %q", raw)
		}
		cfg.RedisDB = db
	}

	return cfg, nil
}

// TelegramEnabled reports whether reminders go to Telegram instead of the log.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
