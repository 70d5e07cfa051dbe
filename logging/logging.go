package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger. Components derive their own
// child loggers from it via With().
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures level and output format from LOG_LEVEL / LOG_FORMAT.
// LOG_FORMAT=console switches to human-readable output for local development.
func Init() {
	level := zerolog.InfoLevel
	if v := strings.ToLower(os.Getenv("LOG_LEVEL")); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			level = l
		}
	}
	zerolog.SetGlobalLevel(level)

	out := zerolog.New(os.Stderr)
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "console" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	Logger = out.With().Timestamp().Logger()
}

// With returns a child context for component loggers.
func With() zerolog.Context {
	return Logger.With()
}
