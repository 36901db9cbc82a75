package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mindplanner/internal/planner"
	"mindplanner/internal/repository"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	HTTPAddr       string
	ReportTime     string
	Location       *time.Location
	ChunkSize      int
	CORSOrigins    []string
	DayPartTimes   planner.DayPartTimes
	ExpiryInterval time.Duration
}

// BotEnabled reports whether a Telegram token was configured.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken: env("TELEGRAM_TOKEN"),
		DatabaseURL:   env("DATABASE_URL"),
		HTTPAddr:      env("HTTP_ADDR"),
		ReportTime:    env("REPORT_TIME"),
		ChunkSize:     repository.DefaultChunkSize,
		CORSOrigins:   splitList(env("CORS_ORIGINS")),
		DayPartTimes:  planner.DefaultDayPartTimes(),
		Location:      time.Local,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "mindplanner.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.ReportTime == "" {
		cfg.ReportTime = "08:00"
	}
	if _, err := planner.ParseTimeOfDay(cfg.ReportTime); err != nil {
		return cfg, fmt.Errorf("REPORT_TIME: %w", err)
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	if tz := env("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if raw := env("INSERT_CHUNK_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("INSERT_CHUNK_SIZE must be a positive integer, got %q", raw)
		}
		cfg.ChunkSize = n
	}

	if raw := env("DAY_PART_TIMES"); raw != "" {
		times, err := planner.ParseDayPartTimes(raw)
		if err != nil {
			return cfg, fmt.Errorf("DAY_PART_TIMES: %w", err)
		}
		cfg.DayPartTimes = times
	}

	cfg.ExpiryInterval = parseInterval(env("EXPIRY_SWEEP_HOURS"))
	if cfg.ExpiryInterval == 0 {
		cfg.ExpiryInterval = time.Hour
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
