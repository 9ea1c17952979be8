// Package wtlog is the engine-wide structured logger. Every component logs
// through a component-scoped child of the single global logger instead of
// constructing its own.
package wtlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Init configures it; until Init is
// called it logs at info level to stdout in console form.
var Logger zerolog.Logger

// Level is the configured verbosity.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how Init builds the global logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

func init() {
	Init(Config{Level: InfoLevel})
}

// Init (re)configures the global logger. Safe to call more than once; later
// calls replace the previous configuration.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagged with the given component name.
// Call sites use this once at construction time and keep the result, rather
// than tagging every call.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
