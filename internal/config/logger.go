package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger: JSON in production, text elsewhere.
// level overrides the environment's default level when it parses.
func NewLogger(env, level string) *slog.Logger {
	return newLogger(os.Stdout, env, level)
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: env == "development",
		Level:     slog.LevelDebug,
	}
	if env == "production" {
		opts.Level = slog.LevelInfo
	}
	if lvl, ok := parseLevel(level); ok {
		opts.Level = lvl
	}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("service", "facewatch"))
}

func parseLevel(s string) (slog.Level, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, false
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, false
	}
	return lvl, true
}
