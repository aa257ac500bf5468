package common

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOST", "10.0.0.9")
	t.Setenv("CLICKHOUSE_PORT", "19000")
	t.Setenv("CLICKHOUSE_DATABASE", "")
	t.Setenv("KI7MT_DATA_DIR", "/srv/lab")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	assert.Equal(t, "10.0.0.9:19000", cfg.ClickHouseAddr())
	assert.Equal(t, "solar", cfg.ClickHouseDatabase)
	assert.Equal(t, "/srv/lab/solar-wind", cfg.SolarWindDataDir())
	assert.Equal(t, "/srv/lab/eef", cfg.FieldDataDir())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestDefaultConfigBadPort(t *testing.T) {
	t.Setenv("CLICKHOUSE_PORT", "nine")
	assert.Equal(t, 9000, DefaultConfig().ClickHousePort)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			assert.Equal(t, tt.want, cfg.SlogLevel())
		})
	}
}
