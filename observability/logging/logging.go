// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the destination and verbosity of the JSON log stream.
type Config struct {
	Level string `yaml:"level"`
	// File, when set, routes logs to a size-rotated file instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Setup installs a JSON slog handler as the default logger and bridges the
// legacy log package into it. The returned closer flushes the rotating file
// sink if one was configured.
func Setup(cfg Config, service string) (*slog.Logger, func() error) {
	var sink io.Writer = os.Stderr
	closer := func() error { return nil }
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    defaultInt(cfg.MaxSizeMB, 50),
			MaxBackups: defaultInt(cfg.MaxBackups, 5),
			MaxAge:     defaultInt(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
		sink = rotator
		closer = rotator.Close
	}

	handler := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	log.SetOutput(slog.NewLogLogger(handler, slog.LevelInfo).Writer())
	log.SetFlags(0)
	return logger, closer
}

func parseLevel(level string) slog.Level {
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

func defaultInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
