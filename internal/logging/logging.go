// Package logging builds the application's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"tgfunnel/internal/config"
)

// NewLogger creates a slog.Logger configured from the application config.
// In production the log output is rotated on disk via lumberjack; in
// development and test it goes to stderr.
func NewLogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.IsProduction() {
		out = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
			MaxSize:    cfg.LogsMaxSizeInMb,
			MaxBackups: cfg.LogsMaxBackups,
			MaxAge:     cfg.LogsMaxAgeInDays,
			Compress:   true,
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: toSlogLevel(cfg.LogLevel),
	})
	return slog.New(handler)
}

func toSlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
