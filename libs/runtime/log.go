package runtime

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/clinica-estetica/turnos/libs/config"
)

// LogOptions controls level, format, and the optional rotated log file.
type LogOptions struct {
	Level      string
	Format     string // "json" (default) or "text"
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// LogOptionsFrom reads LOG_LEVEL, LOG_FORMAT, LOG_FILE and the LOG_MAX_* rotation knobs.
func LogOptionsFrom(src *config.Source) LogOptions {
	size, _ := src.Int("LOG_MAX_SIZE_MB", 50)
	backups, _ := src.Int("LOG_MAX_BACKUPS", 5)
	age, _ := src.Int("LOG_MAX_AGE_DAYS", 14)
	return LogOptions{
		Level:      src.String("LOG_LEVEL", "info"),
		Format:     src.String("LOG_FORMAT", "json"),
		File:       src.String("LOG_FILE", ""),
		MaxSizeMB:  size,
		MaxBackups: backups,
		MaxAgeDays: age,
	}
}

func NewLogger(service string, opts LogOptions) *slog.Logger {
	return newLogger(service, opts, os.Stdout)
}

func newLogger(service string, opts LogOptions, stdout io.Writer) *slog.Logger {
	w := stdout
	if opts.File != "" {
		w = io.MultiWriter(stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    positiveOr(opts.MaxSizeMB, 50),
			MaxBackups: positiveOr(opts.MaxBackups, 5),
			MaxAge:     positiveOr(opts.MaxAgeDays, 14),
			Compress:   true,
		})
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		h = slog.NewTextHandler(w, hopts)
	} else {
		h = slog.NewJSONHandler(w, hopts)
	}
	return slog.New(h).With("service", service)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
