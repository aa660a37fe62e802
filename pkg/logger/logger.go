// Package logger configures the process-wide slog logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, nil
	}
}

// simpleTextHandler formats records as "LEVEL message key=value".
type simpleTextHandler struct {
	handler slog.Handler
	writer  io.Writer
}

func (h *simpleTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *simpleTextHandler) Handle(ctx context.Context, record slog.Record) error {
	var buf strings.Builder

	levelStr := record.Level.String()
	if levelStr == "WARNING" {
		levelStr = "WARN"
	}
	buf.WriteString(strings.ToUpper(levelStr))
	buf.WriteString(" ")
	buf.WriteString(record.Message)

	record.Attrs(func(a slog.Attr) bool {
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")

	_, err := h.writer.Write([]byte(buf.String()))
	return err
}

func (h *simpleTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &simpleTextHandler{
		handler: h.handler.WithAttrs(attrs),
		writer:  h.writer,
	}
}

func (h *simpleTextHandler) WithGroup(name string) slog.Handler {
	return &simpleTextHandler{
		handler: h.handler.WithGroup(name),
		writer:  h.writer,
	}
}

// Init initializes the process logger with the specified level and format.
// format: "simple" (level + message + attributes) or "verbose" (standard
// slog text format with timestamps).
func Init(level slog.Level, output *os.File, format string) {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.String() == "WARNING" {
				return slog.String("level", "WARN")
			}
			return a
		},
	}

	var handler slog.Handler = slog.NewTextHandler(output, opts)
	if format == "simple" || format == "" {
		handler = &simpleTextHandler{handler: handler, writer: output}
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// OpenLogFile opens or creates a log file at the specified path.
// Returns the file handle and a cleanup function.
func OpenLogFile(path string) (*os.File, func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

// GetLogger returns the default slog logger, initializing it with INFO level
// and simple format if nothing was configured.
func GetLogger() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr, "simple")
	}
	return defaultLogger
}
