// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level   string
	File    string
	Service string
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds the JSON handler writing to out, and additionally to a
// rotating log file when opts.File is set.
func NewHandler(out io.Writer, opts Options) slog.Handler {
	w := out
	if opts.File != "" {
		logDir := filepath.Dir(opts.File)
		if err := os.MkdirAll(logDir, 0750); err != nil {
			slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error(
				"Failed to create log directory", "path", logDir, "error", err,
			)
		}
		logRotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		}
		w = io.MultiWriter(out, logRotator)
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	})
	if opts.Service == "" {
		return handler
	}
	return handler.WithAttrs([]slog.Attr{slog.String("service", opts.Service)})
}

func Setup(opts Options) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, opts)))
}
