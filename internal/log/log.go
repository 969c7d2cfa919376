// Package log is a thin package-level wrapper around log/slog.
// Logging is disabled until Enable or EnableFile is called, so the TUI never
// writes diagnostics onto the terminal it is drawing.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
	enabled bool
	file    *os.File
)

func init() {
	level.Set(slog.LevelDebug)
}

// Enable routes log output to w.
func Enable(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	enabled = true
}

// EnableFile opens (or creates) path in append mode and routes log output to it.
func EnableFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	Enable(f)
	mu.Lock()
	file = f
	mu.Unlock()
	return nil
}

// Disable discards all further output and closes any file opened by EnableFile.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	enabled = false
	level.Set(slog.LevelDebug)
}

func closeFileLocked() {
	if file != nil {
		_ = file.Close()
		file = nil
	}
}

// IsEnabled reports whether output is currently routed anywhere.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetLevel sets the minimum level that is written.
func SetLevel(l slog.Level) {
	level.Set(l)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

func Debug(msg string, args ...any) { current().Debug(msg, args...) }
func Info(msg string, args ...any)  { current().Info(msg, args...) }
func Warn(msg string, args ...any)  { current().Warn(msg, args...) }
func Error(msg string, args ...any) { current().Error(msg, args...) }

func DebugContext(ctx context.Context, msg string, args ...any) {
	current().DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	current().InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	current().WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	current().ErrorContext(ctx, msg, args...)
}
