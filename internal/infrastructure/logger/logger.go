package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog.Logger writing human readable lines to stdout.
func New(level, service, environment string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, service, environment)
}

// NewWithWriter is New with an explicit destination. The uploader sends logs to stderr
// so that stdout carries only status lines.
func NewWithWriter(out io.Writer, level, service, environment string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", service).
		Str("environment", environment).
		Logger().
		Level(ParseLevel(level))
}

// ParseLevel maps a config string to a level; empty or unknown values mean info.
func ParseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
