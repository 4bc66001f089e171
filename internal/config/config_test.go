package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "SAVE_DEBOUNCE_MS", "LOG_LEVEL", "CORS_ORIGINS", "LOCALE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 400*time.Millisecond, cfg.SaveDebounce)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "es", cfg.Locale)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SAVE_DEBOUNCE_MS", "50")
	t.Setenv("TOKEN_TTL_HOURS", "nope")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.SaveDebounce)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}
