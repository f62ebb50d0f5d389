// Package obslog sets up the process-wide structured logger used at
// service boundaries (the two cmd/ entrypoints) and threaded into any
// package that logs rather than reaching for a second logging library.
package obslog

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Setup creates and installs the default zerolog logger at the requested
// level, writing newline-delimited JSON to stdout.
func Setup(level string) *zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zlog.Logger = logger
	return &logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns a default info-level logger.
func Logger() *zerolog.Logger {
	return Setup("info")
}
