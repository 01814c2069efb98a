// Package logger provides the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Log is the global logger instance used throughout hostpilot.
var Log *slog.Logger

// Level controls Log's effective verbosity and can be changed at runtime.
var Level *slog.LevelVar

func init() {
	Level = &slog.LevelVar{}
	opts := &slog.HandlerOptions{
		Level: Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "time" {
				return slog.Attr{Key: "timestamp", Value: slog.TimeValue(a.Value.Time())}
			}
			return a
		},
	}
	Log = slog.New(slog.NewTextHandler(os.Stderr, opts))
	Level.Set(slog.LevelWarn)
}

// SetLevel sets the global log level by name; unrecognized names are ignored.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		Level.Set(slog.LevelDebug)
	case "info":
		Level.Set(slog.LevelInfo)
	case "warn":
		Level.Set(slog.LevelWarn)
	case "error":
		Level.Set(slog.LevelError)
	}
}
