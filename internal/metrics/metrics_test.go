package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/reconcile"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

func TestRecord(t *testing.T) {
	r := New()
	r.Record(&pkgsync.Result{
		Duration:    3 * time.Second,
		Extract:     pkgsync.ExtractStats{Departments: 12, Users: 100, ExpectedUsers: 100, RateLimitRetries: 4},
		Departments: &reconcile.DepartmentResult{Created: 2},
		Users:       &reconcile.UserResult{Created: 5, Updated: 1, Skipped: 3},
	}, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.success))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.duration))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.rateLimits))
	assert.Equal(t, 100.0, testutil.ToFloat64(r.extracted.WithLabelValues("users")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.changes.WithLabelValues("department", "create")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.changes.WithLabelValues("user", "create")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.changes.WithLabelValues("user", "skipped")))
}

func TestRecordFailure(t *testing.T) {
	r := New()
	r.Record(nil, errors.NewIntegrityError("user_total", 100, 97))

	assert.Equal(t, 0.0, testutil.ToFloat64(r.success))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("integrity")))
}

func TestWriteFile(t *testing.T) {
	r := New()
	r.Record(&pkgsync.Result{Users: &reconcile.UserResult{Disabled: 1}}, nil)

	path := filepath.Join(t.TempDir(), "orgsync.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `orgsync_last_run_changes{entity="user",type="disable"} 1`)
	assert.Contains(t, string(data), "orgsync_last_run_success 1")
}
