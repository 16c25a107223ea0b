// Package logging wires zerolog for the command line and the store layer.
// Core functions receive a logger through their context; pure functions do not log.
package logging

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var defaultLogger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	defaultLogger.Store(&l)
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger.Store(&logger)
}

// Nop returns a logger that discards everything.
func Nop() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
