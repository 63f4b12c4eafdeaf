package logger

import (
	"fmt"
	"io"

	"go.uber.org/zap/zapcore"
)

// Level is a log level.
type Level = zapcore.Level

const (
	// DebugLevel is a debug log level.
	DebugLevel = zapcore.DebugLevel
	// InfoLevel is an info log level.
	InfoLevel = zapcore.InfoLevel
	// WarnLevel is a warning log level.
	WarnLevel = zapcore.WarnLevel
	// ErrorLevel is an error log level.
	ErrorLevel = zapcore.ErrorLevel
)

// Config is the configuration for the logger.
type Config struct {
	Output io.Writer
	Level  Level
	// StripTime disables time variance in logger.
	StripTime bool
}

// ParseLevel parses a level name: debug, info, warn or error. The names are case-insensitive.
func ParseLevel(s string) (Level, error) {
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return InfoLevel, fmt.Errorf("could not parse log level: %w", err)
	}

	if l > ErrorLevel {
		return InfoLevel, fmt.Errorf("could not parse log level: unsupported level %q", s) // nolint: goerr113
	}

	return l, nil
}
