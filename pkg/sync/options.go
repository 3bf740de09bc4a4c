// Package sync provides the options and result types of a directory sync run.
package sync

import (
	"time"

	"github.com/agentstation/orgsync/pkg/errors"
)

// Options controls one run of Client.Sync.
type Options struct {
	// Orchestration control
	DryRun      bool          // Plan changes without writing to the target
	AutoApprove bool          // Skip the confirmation prompt
	Timeout     time.Duration // Timeout for the entire run, 0 for none

	// Extraction control
	Refetch   bool   // Extract from the source even when extracts exist
	OutputDir string // Directory holding the CSV extracts (empty means default)
}

// Apply applies the given options to the sync options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{}
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Validate checks if the sync options are valid.
func (s *Options) Validate() error {
	if s.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   s.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	return nil
}

// ShouldFetch reports whether the run extracts from the source instead of
// loading existing extracts. Unattended runs always extract.
func (s *Options) ShouldFetch(extractsExist bool) bool {
	return s.Refetch || s.AutoApprove || !extractsExist
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithAutoApprove configures auto approval.
func WithAutoApprove(autoApprove bool) Option {
	return func(opts *Options) {
		opts.AutoApprove = autoApprove
	}
}

// WithTimeout configures the sync timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithRefetch forces extraction from the source.
func WithRefetch(refetch bool) Option {
	return func(opts *Options) {
		opts.Refetch = refetch
	}
}

// WithOutputDir configures where extracts are read and written.
func WithOutputDir(dir string) Option {
	return func(opts *Options) {
		opts.OutputDir = dir
	}
}
