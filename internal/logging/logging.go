// Package logging builds slog loggers for the CLI entrypoints. The HTTP
// server gets its logger from cartridge; linkctl runs outside the server
// lifecycle and still needs its output in the shared rotating log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"linktally/internal/config"
)

// NewCLILogger returns a logger writing to stderr and, when a log directory
// is configured, to the rotating application log file.
func NewCLILogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stderr

	if dir := cfg.GetLogDirectory(); dir != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filepath.Join(dir, cfg.GetAppName()+".log"),
			MaxSize:    cfg.GetLogMaxSizeMB(),
			MaxBackups: cfg.GetLogMaxBackups(),
			MaxAge:     cfg.GetLogMaxAgeDays(),
			Compress:   true,
		})
	}

	level := slog.LevelInfo
	if cfg.GetLogLevel() == "debug" {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
