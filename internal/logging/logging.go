package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLevel overrides the configured log level when set
const EnvLevel = "ADAPTIVE_EQ_LOG_LEVEL"

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "critical", "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger writing to logFile, or to stderr with console
// formatting when logFile is empty
func New(logFile, logLevel string) zerolog.Logger {
	if env := os.Getenv(EnvLevel); env != "" {
		logLevel = env
	}
	level := ParseLevel(logLevel)

	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}

// Wrap logs err against op and returns it unchanged. A nil err is a no-op.
func Wrap(logger zerolog.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	logger.Error().Err(err).Str("op", op).Msg("Operation failed")
	return err
}
