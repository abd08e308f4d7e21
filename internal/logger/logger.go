// Package logger builds the CLI's slog logger. Library packages take a
// *slog.Logger through their options and discard output by default.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelEnv overrides the level when --verbose is not given.
const LevelEnv = "LOG_LEVEL"

const redacted = "[REDACTED]"

var sensitiveKeys = []string{"password", "secret", "token", "connection_string", "access_key"}

// ParseLevel maps a level name to a slog.Level, falling back to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Level resolves the effective level: debug when verbose, otherwise
// LOG_LEVEL, otherwise warn so progress bars stay readable.
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if v := os.Getenv(LevelEnv); v != "" {
		return ParseLevel(v)
	}
	return slog.LevelWarn
}

// New returns a text logger writing to w. Attributes whose key looks
// like a credential are redacted.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	}))
}

func redact(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range sensitiveKeys {
		if key == s || strings.HasSuffix(key, "_"+s) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}
