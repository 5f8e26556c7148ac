package slogutil

import (
	"io"
	"log/slog"
	"os"

	"sentinel/internal/config"
	"sentinel/internal/paths"
)

// LoggerFactory builds loggers honoring the precedence
// CLI flags > config file > default.
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a logger factory. cliLevel is nil when no CLI
// override was given.
func NewLoggerFactory(root string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{root: root, config: cfg, cliLevel: cliLevel}
}

// Level returns the effective level.
func (f *LoggerFactory) Level() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// CLILogger writes to stderr. When logging.file is enabled it also appends to
// <root>/.sentinel/logs/sentinel.log.
func (f *LoggerFactory) CLILogger() *slog.Logger {
	level := f.Level()
	stderr := NewHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if !f.config.Logging.File || f.root == "" {
		return slog.New(stderr)
	}

	path := paths.LogFile(f.root)
	_, file, err := NewFileLogger(path, level)
	if err != nil {
		return slog.New(stderr)
	}
	f.closers = append(f.closers, file)
	return slog.New(NewTeeHandler(stderr, NewHandler(file, &slog.HandlerOptions{Level: level})))
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
