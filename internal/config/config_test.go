package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindplanner/internal/planner"
)

var keys = []string{
	"TELEGRAM_TOKEN", "DATABASE_URL", "HTTP_ADDR", "REPORT_TIME", "TIMEZONE",
	"INSERT_CHUNK_SIZE", "CORS_ORIGINS", "DAY_PART_TIMES", "EXPIRY_SWEEP_HOURS",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.BotEnabled())
	assert.Equal(t, "mindplanner.db", cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "08:00", cfg.ReportTime)
	assert.Equal(t, 100, cfg.ChunkSize)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, time.Hour, cfg.ExpiryInterval)
	assert.Equal(t, planner.DefaultDayPartTimes(), cfg.DayPartTimes)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", " abc ")
	t.Setenv("INSERT_CHUNK_SIZE", "25")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DAY_PART_TIMES", "morning=08:30")
	t.Setenv("EXPIRY_SWEEP_HOURS", "6")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.BotEnabled())
	assert.Equal(t, "abc", cfg.TelegramToken)
	assert.Equal(t, 25, cfg.ChunkSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, planner.TimeOfDay{Hour: 8, Minute: 30}, cfg.DayPartTimes[planner.Morning])
	assert.Equal(t, 6*time.Hour, cfg.ExpiryInterval)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"INSERT_CHUNK_SIZE": "0",
		"REPORT_TIME":       "8am",
		"DAY_PART_TIMES":    "brunch=11:00",
		"TIMEZONE":          "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
