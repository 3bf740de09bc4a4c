package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/orgsync/pkg/logging"
)

// NewLogger creates a configured logger based on the application configuration
// and installs it as the package default, so code that logs through a context
// without a logger uses it too.
// Log level precedence (highest to lowest):
//  1. --log-level flag or LOG_LEVEL environment variable
//  2. -v/--verbose flag (shortcut for debug)
//  3. -q/--quiet flag (shortcut for warn)
//  4. Default (info)
//
// LOG_TIME_FORMAT, LOG_CALLER and LOG_FIELDS are read from the environment.
func NewLogger(config *Config) zerolog.Logger {
	logConfig := loggerConfig(config)
	logging.Configure(logConfig)
	return *logging.Default()
}

// loggerConfig overlays the application settings on the environment defaults.
func loggerConfig(config *Config) *logging.Config {
	logConfig := logging.ConfigFromEnv()
	logConfig.Level = determineLogLevel(config)
	logConfig.Format = config.LogFormat
	logConfig.Output = config.LogOutput
	logConfig.NoColor = logConfig.NoColor || config.NoColor
	logConfig.AddCaller = logConfig.AddCaller || logConfig.Level == "debug" || logConfig.Level == "trace"
	return logConfig
}

// determineLogLevel determines the log level using clear precedence rules.
func determineLogLevel(config *Config) string {
	if config.LogLevel != "" {
		validated := validateLogLevel(config.LogLevel)
		if validated != config.LogLevel {
			fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", config.LogLevel, validated)
		}
		return validated
	}

	if config.Verbose && config.Quiet {
		// Both specified - warn user and use quiet (more restrictive)
		fmt.Fprintf(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet\n")
		return "warn"
	}
	if config.Verbose {
		return "debug"
	}
	if config.Quiet {
		return "warn"
	}
	return "info"
}

// validateLogLevel validates a log level string and returns a valid level.
// If the input is invalid, returns "info" as a safe default.
func validateLogLevel(level string) string {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return level
	}
	return "info"
}
