// Package logging builds the zerolog logger archivecore uses everywhere
// else in this module, so every command shares the same field names and
// output format.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Config selects the logger's level and output format.
type Config struct {
	Level  string
	Format string // "console" or "json"
}

// New builds a zerolog.Logger per cfg, tagged with service and version.
func New(cfg Config, service, version string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).
			With().
			Timestamp().
			Str("service", service).
			Str("version", version).
			Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05.000",
	}
	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
