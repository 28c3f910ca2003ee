// Package log builds the daemon's zerolog logger.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config captures logger options.
type Config struct {
	Level  string    // "debug", "info", ... (default info)
	Format string    // FormatConsole or FormatJSON (default console)
	Output io.Writer // defaults to os.Stderr
}

// New builds a logger from cfg. An unknown level or format is an error.
func New(cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	switch cfg.Format {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want %s or %s", cfg.Format, FormatConsole, FormatJSON)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
