package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"vavmerge/internal/config"
	"vavmerge/pkg/logging"
)

// NewLogger builds the CLI logger. Level precedence, highest first:
//  1. --log-level
//  2. -v/--verbose (debug)
//  3. -q/--quiet (warn)
//  4. log.level from config or LOG_LEVEL
//  5. info
func NewLogger(cfg *config.Config, flags Flags) zerolog.Logger {
	level := determineLogLevel(cfg, flags)
	return logging.NewLoggerFromConfig(&logging.Config{
		Level:      level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "kitchen",
		NoColor:    flags.NoColor || os.Getenv("NO_COLOR") != "",
		AddCaller:  level == "trace",
	})
}

func determineLogLevel(cfg *config.Config, flags Flags) string {
	if flags.LogLevel != "" {
		level := strings.ToLower(flags.LogLevel)
		if !validLevel(level) {
			fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using \"info\"\n", flags.LogLevel)
			return "info"
		}
		return level
	}
	if flags.Verbose {
		return "debug"
	}
	if flags.Quiet {
		return "warn"
	}
	if cfg != nil && cfg.Log.Level != "" {
		return strings.ToLower(cfg.Log.Level)
	}
	return "info"
}

func validLevel(level string) bool {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}
