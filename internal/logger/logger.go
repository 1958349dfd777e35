package logger

import (
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

var levelVar = new(slog.LevelVar)

var L = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	levelVar.Set(ParseLevel(lvl))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
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

// Setup sets the level and, when file is non-empty, fans the global logger out
// to a JSON log file next to stdout. The returned func closes the file.
func Setup(lvl, file string) func() error {
	SetLevel(lvl)
	if file == "" {
		return func() error { return nil }
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		L.Error("failed to open log file, using stdout only", "error", err, "file", file)
		return func() error { return nil }
	}

	opts := &slog.HandlerOptions{Level: levelVar}
	L = slog.New(slogmulti.Fanout(
		slog.NewJSONHandler(os.Stdout, opts),
		slog.NewJSONHandler(f, opts),
	))
	return f.Close
}
