package orgsync

import (
	"github.com/agentstation/orgsync/internal/metrics"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/notify"
	"github.com/agentstation/orgsync/pkg/reconcile"
)

// options holds the configuration of a Client.
type options struct {
	source      Source
	target      reconcile.Target
	targetName  string
	engineOpts  []reconcile.Option
	notifier    notify.Notifier
	metrics     *metrics.Recorder
	metricsFile string
	outputDir   string
}

func defaults() *options {
	return &options{
		notifier:  notify.Nop{},
		outputDir: constants.DefaultOutputDir,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Option is a function that configures a Client instance.
type Option func(*options) error

// WithSource configures where the directory is extracted from.
func WithSource(src Source) Option {
	return func(o *options) error {
		o.source = src
		return nil
	}
}

// WithTarget configures the directory being kept in sync. name is reported
// in results and logs.
func WithTarget(name string, target reconcile.Target) Option {
	return func(o *options) error {
		if target == nil {
			return &errors.ValidationError{Field: "target", Message: "cannot be nil"}
		}
		o.targetName = name
		o.target = target
		return nil
	}
}

// WithEngineOptions configures the reconciliation engine of every run.
func WithEngineOptions(opts ...reconcile.Option) Option {
	return func(o *options) error {
		o.engineOpts = append(o.engineOpts, opts...)
		return nil
	}
}

// WithNotifier configures where completion messages of real runs go.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) error {
		if n == nil {
			n = notify.Nop{}
		}
		o.notifier = n
		return nil
	}
}

// WithMetrics records every run in r and, when path is set, writes the
// registry to path after each run.
func WithMetrics(r *metrics.Recorder, path string) Option {
	return func(o *options) error {
		o.metrics = r
		o.metricsFile = path
		return nil
	}
}

// WithOutputDir configures the default directory of the CSV extracts.
func WithOutputDir(dir string) Option {
	return func(o *options) error {
		if dir != "" {
			o.outputDir = dir
		}
		return nil
	}
}
