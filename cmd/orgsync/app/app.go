// Package app provides the application context and dependency management
// for the orgsync CLI. It centralizes configuration, dependency injection,
// and lifecycle management.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/orgsync"
	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/internal/config"
	"github.com/agentstation/orgsync/internal/metrics"
	"github.com/agentstation/orgsync/internal/sources/feishu"
	"github.com/agentstation/orgsync/internal/targets/ruoyiapi"
	"github.com/agentstation/orgsync/internal/targets/ruoyidb"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/notify"
	"github.com/agentstation/orgsync/pkg/reconcile"
)

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// App represents the orgsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Target connections opened by Client, closed on Shutdown
	mu      sync.Mutex
	closers []io.Closer
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration loaded from the environment
// that can be customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	// Load configuration
	cfg, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = cfg

	// Initialize logger
	logger := NewLogger(cfg)
	app.logger = &logger

	// Apply any custom options
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Settings returns the sync settings.
func (a *App) Settings() *config.Config {
	return a.config.Sync
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Quiet reports whether --quiet was given.
func (a *App) Quiet() bool {
	return a.config.Quiet
}

// Client builds an orgsync client from the current settings. Credentials
// are validated before any connection is made.
func (a *App) Client(ctx context.Context, withTarget bool) (orgsync.Client, error) {
	settings := a.Settings()
	if err := settings.ValidateSource(); err != nil {
		return nil, err
	}
	if withTarget {
		if err := settings.ValidateTarget(); err != nil {
			return nil, err
		}
	}

	src, err := feishu.New(settings.Feishu())
	if err != nil {
		return nil, errors.WrapResource("create", "source", "feishu", err)
	}

	opts := []orgsync.Option{
		orgsync.WithSource(src),
		orgsync.WithOutputDir(settings.OutputDir),
		orgsync.WithNotifier(a.notifier()),
	}
	if settings.MetricsFile != "" {
		opts = append(opts, orgsync.WithMetrics(metrics.New(), settings.MetricsFile))
	}

	if withTarget {
		targetOpts, err := a.targetOptions(ctx, settings)
		if err != nil {
			return nil, err
		}
		opts = append(opts, targetOpts...)
	}

	c, err := orgsync.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	return c, nil
}

// targetOptions connects to the selected target.
func (a *App) targetOptions(ctx context.Context, settings *config.Config) ([]orgsync.Option, error) {
	switch settings.Target {
	case config.TargetAPI:
		tgt, err := ruoyiapi.New(ctx, settings.API())
		if err != nil {
			return nil, errors.WrapResource("create", "target", config.TargetAPI, err)
		}
		password := settings.DefaultPassword
		if password == "" {
			password = constants.DefaultUserPassword
		}
		return []orgsync.Option{
			orgsync.WithTarget(config.TargetAPI, tgt),
			orgsync.WithEngineOptions(reconcile.WithDefaultPassword(password)),
		}, nil

	default:
		hash, err := ruoyidb.ResolvePassword(settings.DefaultPasswordHash, settings.DefaultPassword)
		if err != nil {
			return nil, err
		}
		tgt, err := ruoyidb.Open(ctx, settings.Database())
		if err != nil {
			return nil, errors.WrapResource("open", "target", config.TargetDB, err)
		}
		a.mu.Lock()
		a.closers = append(a.closers, tgt)
		a.mu.Unlock()
		return []orgsync.Option{
			orgsync.WithTarget(config.TargetDB, tgt),
			orgsync.WithEngineOptions(reconcile.WithDefaultPassword(hash)),
		}, nil
	}
}

// notifier logs completion messages and posts them to the configured
// webhook when there is one.
func (a *App) notifier() notify.Notifier {
	url := a.Settings().NotifyWebhookURL
	if url == "" {
		return notify.Log{}
	}
	webhook, err := notify.NewWebhook(url)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Ignoring notification webhook")
		return notify.Log{}
	}
	return notify.Multi{notify.Log{}, webhook}
}

// Shutdown performs graceful shutdown of the application, closing any
// target connections opened by Client.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close target connection during shutdown")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) error {
		a.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
