// Package appcontext provides the shared application context interface
// used by all commands. Commands accept this interface rather than the
// concrete App type so they can be tested with a mock.
package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/internal/config"
)

// Interface defines what commands need from the application.
type Interface interface {
	// Settings returns the sync settings read from flags, environment,
	// .env files and the config file. Commands may override fields from
	// their own flags before calling Client.
	Settings() *config.Config

	// Client builds an orgsync client from the current settings. When
	// withTarget is false only the source is configured, which is enough
	// for Fetch. Target connections are closed by the app on shutdown.
	Client(ctx context.Context, withTarget bool) (orgsync.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Quiet reports whether progress output is suppressed.
	Quiet() bool

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
