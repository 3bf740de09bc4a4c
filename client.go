// Package orgsync keeps a RuoYi administrative directory in line with a
// Feishu organization.
//
// A run extracts the Feishu department tree and member list (or loads the
// CSV extracts a previous run left behind), verifies the extraction against
// the organization's member count, and then reconciles departments and
// users into the target through either its database or its REST API.
//
// Example usage:
//
//	src, _ := feishu.New(feishu.Config{AppID: id, AppSecret: secret})
//	tgt, _ := ruoyidb.Open(ctx, dbConfig)
//
//	c, err := orgsync.New(
//	    orgsync.WithSource(src),
//	    orgsync.WithTarget("db", tgt),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c.OnUserChange(func(change differ.Change) {
//	    log.Printf("%s %s", change.Type, change.Label())
//	})
//
//	result, err := c.Sync(ctx, pkgsync.WithDryRun(true))
package orgsync

import (
	"context"

	"github.com/agentstation/orgsync/internal/extract"
	"github.com/agentstation/orgsync/pkg/errors"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

// Source extracts the organization directory. Implementations verify the
// extraction and return an IntegrityError, together with the partial
// extraction, when it cannot be trusted.
type Source interface {
	Extract(ctx context.Context) (*pkgsync.Extraction, error)
}

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Fetcher pulls the source directory into the CSV extracts.
type Fetcher interface {
	Fetch(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Extraction, error)
}

// Syncer runs a reconciliation.
type Syncer interface {
	Sync(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Result, error)
}

// Client runs fetches and syncs with event hooks.
type Client interface {

	// Fetcher extracts the source directory
	Fetcher

	// Syncer reconciles the target with the source
	Syncer

	// Hooks provides access to event callback registration
	Hooks
}

// client is the internal implementation of the Client interface.
type client struct {

	// options are the configured options for the client
	options *options

	// hooks are called for every change a real run applies
	hooks *hooks
}

// New creates a new Client instance with the given options. A source is
// required; a target is only needed by Sync.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.source == nil {
		return nil, &errors.ValidationError{Field: "source", Message: "cannot be nil"}
	}
	return &client{
		options: o,
		hooks:   newHooks(),
	}, nil
}

// store returns the extract store for a run.
func (c *client) store(options *pkgsync.Options) *extract.Store {
	if options.OutputDir != "" {
		return extract.New(options.OutputDir)
	}
	return extract.New(c.options.outputDir)
}
