package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerConfigSetDefaults(t *testing.T) {
	c := &LoggerConfig{}
	c.SetDefaults()
	assert.Equal(t, "info", c.Level)
	assert.Equal(t, "simple", c.Format)
	assert.Empty(t, c.File)
}

func TestLoggerConfigValidateRejectsUnknownLevel(t *testing.T) {
	c := &LoggerConfig{Level: "loud"}
	assert.Error(t, c.Validate())
}

func TestLoggerConfigValidateAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", ""} {
		c := &LoggerConfig{Level: level}
		assert.NoError(t, c.Validate())
	}
}

func TestLoggerConfigSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
		"":        slog.LevelWarn,
	}
	for level, want := range cases {
		c := &LoggerConfig{Level: level}
		assert.Equal(t, want, c.SlogLevel())
	}
}
