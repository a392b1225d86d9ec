package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where the logger writes.
type Options struct {
	File  string
	Level string
	// Console mirrors every line to this writer when set (stderr for the desktop shell).
	Console io.Writer
}

// New builds a text slog logger writing to a rotating file. The returned closer
// releases the file; it is safe to call when no file is configured.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
		writers = append(writers, rotator)
		closer = rotator
	}
	if opts.Console != nil {
		writers = append(writers, opts.Console)
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	return slog.New(handler), closer, nil
}

// ParseLevel maps debug|info|warn|error onto slog levels. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
