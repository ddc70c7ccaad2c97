package app

import (
	"io"
	"log/slog"
	"path/filepath"
)

// newLogger builds the logger for one App from its configuration. It does
// not set the global logger. Every record carries the project name so that
// the output of several watched projects can be told apart.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler).With("project", filepath.Base(cfg.ProjectPath))
}
