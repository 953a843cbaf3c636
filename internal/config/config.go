package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	AppURL        string
	Timezone      *time.Location

	// Daily job times, HH:MM in Timezone.
	ReconcileTime string
	MorningTime   string
	TriageTime    string
	EveningTime   string

	// OwnerScanLimit caps how many owners one daily job run touches.
	OwnerScanLimit int
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AppURL:         strings.TrimSpace(os.Getenv("APP_URL")),
		ReconcileTime:  envOr("RECONCILE_TIME", "07:50"),
		MorningTime:    envOr("MORNING_TIME", "08:00"),
		TriageTime:     envOr("TRIAGE_TIME", "08:30"),
		EveningTime:    envOr("EVENING_TIME", "21:00"),
		OwnerScanLimit: parsePositiveInt(os.Getenv("OWNER_SCAN_LIMIT"), 1000),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskbot.db"
	}

	loc := time.Local
	if name := strings.TrimSpace(os.Getenv("TIMEZONE")); name != "" {
		parsed, err := time.LoadLocation(name)
		if err != nil {
			return cfg, fmt.Errorf("TIMEZONE %q: %w", name, err)
		}
		loc = parsed
	}
	cfg.Timezone = loc

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parsePositiveInt(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
