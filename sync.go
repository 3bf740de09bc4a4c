package orgsync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/orgsync/internal/extract"
	"github.com/agentstation/orgsync/pkg/directory"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/identity"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/notify"
	"github.com/agentstation/orgsync/pkg/reconcile"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

// Fetch extracts the source directory and writes the CSV extracts. An
// extraction that fails verification removes any existing extracts, so a
// later run cannot reconcile from stale data.
func (c *client) Fetch(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Extraction, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := pkgsync.Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, options.Timeout)
	defer cancel()
	return c.fetch(ctx, c.store(options))
}

// Sync reconciles the target with the source: departments first, then users
// against the department mapping the first phase produced.
func (c *client) Sync(ctx context.Context, opts ...pkgsync.Option) (result *pkgsync.Result, err error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Parse options
	options := pkgsync.Defaults().Apply(opts...)
	if err = options.Validate(); err != nil {
		return nil, err
	}
	if c.options.target == nil {
		return nil, &errors.ValidationError{Field: "target", Message: "cannot be nil"}
	}

	// Step 2: Setup context with timeout and run fields
	ctx, cancel := withTimeout(ctx, options.Timeout)
	defer cancel()

	runID := uuid.NewString()
	ctx = logging.WithRun(ctx, runID, options.DryRun)
	ctx = logging.WithTarget(ctx, c.options.targetName)
	log := logging.FromContext(ctx)
	start := time.Now()

	// Step 3: Record the outcome however the run ends
	defer func() {
		if result != nil {
			result.Duration = time.Since(start)
		}
		c.record(ctx, result, err)
	}()

	// Step 4: Extract from the source or load the extracts of an earlier run
	store := c.store(options)
	var ex *pkgsync.Extraction
	if options.ShouldFetch(store.Exists()) {
		ex, err = c.fetch(ctx, store)
	} else {
		log.Info().Str("dir", store.Dir()).Msg("Using existing extracts")
		ex, err = load(store)
	}
	if err != nil {
		return nil, err
	}

	result = &pkgsync.Result{
		RunID:     runID,
		Target:    c.options.targetName,
		DryRun:    options.DryRun,
		StartedAt: start,
		Extract:   ex.Stats,
	}

	// Step 5: Create the reconciliation engine
	engineOpts := make([]reconcile.Option, 0, len(c.options.engineOpts)+1)
	engineOpts = append(engineOpts, c.options.engineOpts...)
	engine, err := reconcile.New(c.options.target, append(engineOpts, reconcile.WithDryRun(options.DryRun))...)
	if err != nil {
		return nil, err
	}

	// Step 6: Reconcile departments
	result.Departments, err = engine.Departments(ctx, ex.Snapshot.Departments)
	if err != nil {
		return result, errors.NewSyncError("departments", err)
	}

	// Step 7: Reconcile users against the department mapping
	result.Users, err = engine.Users(ctx, ex.Snapshot.Users, result.Departments.Mapping)
	if err != nil {
		return result, errors.NewSyncError("users", err)
	}

	// Step 8: Log change summary
	if result.HasChanges() {
		log.Info().
			Int("departments_created", result.Departments.Created).
			Int("departments_updated", result.Departments.Updated).
			Int("departments_disabled", result.Departments.Disabled).
			Int("users_created", result.Users.Created).
			Int("users_updated", result.Users.Updated).
			Int("users_disabled", result.Users.Disabled).
			Int("failed", result.Failed()).
			Msg("Changes detected")
	} else {
		log.Info().Msg("No changes detected")
	}
	if options.DryRun {
		log.Info().Bool("dry_run", true).Msg("Dry run completed - no changes applied")
		return result, nil
	}

	// Step 9: Trigger hooks and notify for applied changes
	c.hooks.trigger(result)
	if msg, ok := notify.Build(result); ok {
		if nerr := c.options.notifier.Notify(ctx, msg); nerr != nil {
			log.Warn().Err(nerr).Msg("Failed to send completion notification")
		}
	}

	log.Info().Str("summary", result.Summary()).Msg("Sync completed")
	return result, nil
}

// fetch runs the source and persists a verified extraction.
func (c *client) fetch(ctx context.Context, store *extract.Store) (*pkgsync.Extraction, error) {
	log := logging.FromContext(ctx)

	ex, err := c.options.source.Extract(ctx)
	if err != nil {
		if errors.IsIntegrity(err) {
			if rmErr := store.Remove(); rmErr != nil {
				log.Warn().Err(rmErr).Msg("Failed to remove stale extracts")
			}
			log.Error().Err(err).Msg("Extraction failed verification, nothing was written")
		}
		return ex, err
	}

	if err := store.Write(&ex.Snapshot); err != nil {
		return ex, err
	}
	log.Info().
		Str("departments", store.DepartmentsPath()).
		Str("users", store.UsersPath()).
		Msg("Wrote extracts")
	return ex, nil
}

// load reads the extracts of an earlier run. They were verified when they
// were written; handles are derived again so the loaded users match what a
// fresh extraction would produce.
func load(store *extract.Store) (*pkgsync.Extraction, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, err
	}
	snap.Users = identity.AssignHandles(snap.Users)

	stats := pkgsync.ExtractStats{
		Departments:   len(snap.Departments),
		Users:         len(snap.Users),
		ExpectedUsers: len(snap.Users),
		Excluded:      len(snap.Users) - len(directory.Synchronized(snap.Users)),
		FromExtracts:  true,
	}
	if err := stats.Verify(); err != nil {
		return nil, err
	}
	return &pkgsync.Extraction{Snapshot: *snap, Stats: stats}, nil
}

// record updates run metrics when a recorder is configured.
func (c *client) record(ctx context.Context, result *pkgsync.Result, err error) {
	if c.options.metrics == nil {
		return
	}
	c.options.metrics.Record(result, err)
	if c.options.metricsFile == "" {
		return
	}
	if werr := c.options.metrics.WriteFile(c.options.metricsFile); werr != nil {
		logging.FromContext(ctx).Warn().Err(werr).Msg("Failed to write metrics file")
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
