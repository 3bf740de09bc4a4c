package feishu

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/agentstation/orgsync/pkg/directory"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/identity"
	"github.com/agentstation/orgsync/pkg/logging"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

// Extract fetches the full directory and verifies it: an extraction with no
// departments, no users, or a deduplicated user total that differs from the
// organization's member count is rejected with an IntegrityError.
func (c *Client) Extract(ctx context.Context) (*pkgsync.Extraction, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	tenant, err := c.TenantName(ctx)
	if err != nil {
		// the tenant name is only displayed
		log.Warn().Err(err).Msg("Failed to look up tenant name")
	} else {
		log.Info().Str("tenant", tenant).Msg("Fetching organization directory")
	}

	expected, err := c.TotalMembers(ctx)
	if err != nil {
		return nil, errors.NewSyncError("extract", err)
	}

	var failed atomic.Int64
	depts, err := c.FetchDepartments(ctx, &failed)
	if err != nil {
		return nil, errors.NewSyncError("extract", err)
	}
	log.Info().Int("departments", len(depts)).Msg("Fetched departments")

	ids := make([]string, len(depts))
	names := make(map[string]string, len(depts))
	for i, d := range depts {
		ids[i] = d.ID
		names[d.ID] = d.Name
	}

	users, userStats, err := c.FetchUsers(ctx, ids, names, &failed)
	if err != nil {
		return nil, errors.NewSyncError("extract", err)
	}
	users = identity.AssignHandles(users)

	ex := &pkgsync.Extraction{
		TenantName: tenant,
		Snapshot:   directory.Snapshot{Departments: depts, Users: users},
		Stats: pkgsync.ExtractStats{
			Departments:      len(depts),
			Users:            len(users),
			ExpectedUsers:    expected,
			Duplicates:       userStats.Duplicates,
			MissingUserID:    userStats.MissingUserID,
			Excluded:         len(users) - len(directory.Synchronized(users)),
			RateLimitRetries: c.RateLimitRetries(),
		},
		FailedPartitions: int(failed.Load()),
		Duration:         time.Since(start),
	}

	log.Info().
		Int("users", ex.Stats.Users).
		Int("expected", expected).
		Int("duplicates", ex.Stats.Duplicates).
		Int("missing_user_id", ex.Stats.MissingUserID).
		Int("rate_limit_retries", ex.Stats.RateLimitRetries).
		Int("failed_partitions", ex.FailedPartitions).
		Dur("duration", ex.Duration).
		Msg("Fetched users")

	if err := ex.Stats.Verify(); err != nil {
		return ex, err
	}
	return ex, nil
}
