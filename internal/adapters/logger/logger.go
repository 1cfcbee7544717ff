// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"

	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger *slog.Logger
	mu     sync.RWMutex
}

// New creates a new Logger writing human-readable text to stderr, keeping
// stdout free for recipe output.
func New() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &Logger{
		logger: slog.New(handler),
	}
}

// SetOutput swaps the logger's output destination. Tests use this to capture
// log lines; the swap is guarded so in-flight logging stays safe.
func (l *Logger) SetOutput(w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = slog.New(handler)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs an error together with the metadata attached along its chain.
func (l *Logger) Error(err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err == nil {
		return
	}

	args := []any{"error", err}
	meta := collectMetadata(err)
	for _, key := range slices.Sorted(maps.Keys(meta)) {
		args = append(args, key, meta[key])
	}
	l.logger.Error("operation failed", args...)
}

// collectMetadata flattens zerr metadata over the unwrap chain. The walk is
// outermost-first, so wrapping code wins on key collisions.
func collectMetadata(err error) map[string]any {
	meta := map[string]any{}
	for current := err; current != nil; current = errors.Unwrap(current) {
		zErr, ok := current.(*zerr.Error)
		if !ok {
			continue
		}
		for key, val := range zErr.Metadata() {
			if _, dup := meta[key]; !dup {
				meta[key] = val
			}
		}
	}
	return meta
}

var _ ports.Logger = (*Logger)(nil)
