// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel overrides the configured level when set.
const EnvLevel = "RAG_LOG_LEVEL"

var logLevel = new(slog.LevelVar)

// Configure sets the default logger to a TextHandler on w. The level comes
// from RAG_LOG_LEVEL when set, else from level; unknown names mean info.
func Configure(w io.Writer, level string) {
	if env := os.Getenv(EnvLevel); env != "" {
		level = env
	}
	logLevel.Set(ParseLevel(level))

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLevel changes the level of the logger installed by Configure.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
