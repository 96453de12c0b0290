package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the process-wide zerolog logger. The level field is named
// "severity" so Cloud Logging parses levels without a parser config.
func New() zerolog.Logger {
	zerolog.LevelFieldName = "severity"
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Human-readable output and debug noise only for local development.
	if os.Getenv("ENV") == "development" {
		return logger.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
	}
	return logger.Level(zerolog.InfoLevel)
}
