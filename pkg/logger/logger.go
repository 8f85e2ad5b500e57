// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var global zerolog.Logger

// Config controls the global logger's level, output stream and time format.
type Config struct {
	Level      string `mapstructure:"level"`
	Output     string `mapstructure:"output"` // "stdout" or "stderr"
	TimeFormat string `mapstructure:"time_format"`
}

func init() {
	global = zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init configures the global logger from Config. Safe to call once at startup.
func Init(cfg Config) error {
	var output io.Writer = os.Stderr
	if cfg.Output == "stdout" {
		output = os.Stdout
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		level = parsed
	}

	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	global = zerolog.New(output).Level(level).With().Timestamp().Logger()
	log.Logger = global
	return nil
}

// Get returns the global logger.
func Get() zerolog.Logger {
	return global
}

// Component returns a child logger tagged with a component name, the
// convention used across every package in this module.
func Component(name string) zerolog.Logger {
	return global.With().Str("component", name).Logger()
}
