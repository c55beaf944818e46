// Package logger is a thin key/value facade over log/slog used across the service.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// Setup installs the process logger. format is "json" or "text".
func Setup(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	l := slog.New(h)
	current.Store(l)
	slog.SetDefault(l)
	return l
}

func L() *slog.Logger { return current.Load() }

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any) { L().Info(msg, args...) }
func Warn(msg string, args ...any) { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

// ErrorContext logs with the request-scoped attributes carried by ctx, if any.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	L().ErrorContext(ctx, msg, args...)
}
