// Package logging configures the process-wide structured logger. Output is
// JSON, to stderr by default or to a size-rotated file when one is configured.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultMaxSize = 50 << 20 // bytes per log file before rotation
	defaultBackups = 3
)

// ParseLevel converts a string log level to slog.Level. Unknown values fall
// back to info.
func ParseLevel(level string) slog.Level {
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

// Setup installs the default logger. When filePath is non-empty, log lines go
// both to stderr and to a rotating file; the returned closer owns the file and
// is a no-op otherwise.
func Setup(level string, filePath string) (io.Closer, error) {
	var writer io.Writer = os.Stderr
	closer := io.Closer(nopCloser{})

	if filePath != "" {
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return nil, err
		}
		rotating, err := NewRotatingWriter(filePath, defaultMaxSize, defaultBackups)
		if err != nil {
			return nil, err
		}
		writer = io.MultiWriter(os.Stderr, rotating)
		closer = rotating
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
