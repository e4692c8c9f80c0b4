package slogobs

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Option configures the Observer created by New.
type Option func(*config)

type config struct {
	logger *slog.Logger
	level  slog.Leveler
	output io.Writer
}

// WithLogger uses an existing slog.Logger instead of constructing one.
// When set, WithLevel and WithOutput are ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithLevel sets the minimum log level for the constructed logger.
func WithLevel(level slog.Leveler) Option {
	return func(cfg *config) {
		cfg.level = level
	}
}

// WithOutput sets the destination for the constructed logger.
// Defaults to os.Stderr.
func WithOutput(output io.Writer) Option {
	return func(cfg *config) {
		cfg.output = output
	}
}

func applyOptions(opts ...Option) *config {
	cfg := &config{
		level:  levelFromEnv(),
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// levelFromEnv reads LOG_LEVEL (debug|info|warn|error), defaulting to INFO.
func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
