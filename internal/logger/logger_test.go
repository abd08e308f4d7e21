package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLevel(t *testing.T) {
	t.Setenv(LevelEnv, "error")
	assert.Equal(t, slog.LevelDebug, Level(true))
	assert.Equal(t, slog.LevelError, Level(false))

	t.Setenv(LevelEnv, "")
	assert.Equal(t, slog.LevelWarn, Level(false))
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)
	l.Info("opened", "password", "hunter2", "account_secret", "shh", "container", "media", "access_key", "AKIA", "key", "p/a.jpg")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "shh")
	assert.NotContains(t, out, "AKIA")
	assert.Contains(t, out, "container=media")
	assert.Contains(t, out, "key=p/a.jpg")
}
