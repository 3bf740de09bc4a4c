package orgsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/internal/extract"
	"github.com/agentstation/orgsync/internal/metrics"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/directory"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/identity"
	"github.com/agentstation/orgsync/pkg/notify"
	"github.com/agentstation/orgsync/pkg/reconcile"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

// fakeSource returns a fixed extraction, verified like a real source.
type fakeSource struct {
	snap     directory.Snapshot
	expected int
	calls    int
}

func newFakeSource(users, expected int) *fakeSource {
	snap := directory.Snapshot{
		Departments: []directory.Department{
			{ID: "od-eng", Name: "Engineering", ParentID: directory.RootID, Level: 1},
			{ID: "od-backend", Name: "Backend", ParentID: "od-eng", ParentName: "Engineering", Level: 2},
		},
	}
	for i := 1; i <= users; i++ {
		snap.Users = append(snap.Users, directory.User{
			ID:            fmt.Sprintf("u%03d", i),
			OpenID:        fmt.Sprintf("ou_%03d", i),
			Name:          fmt.Sprintf("user%d", i),
			Email:         fmt.Sprintf("user%d@example.com", i),
			Status:        directory.StatusActivated,
			DepartmentIDs: []string{"od-backend"},
		})
	}
	snap.Users = identity.AssignHandles(snap.Users)
	return &fakeSource{snap: snap, expected: expected}
}

func (f *fakeSource) Extract(context.Context) (*pkgsync.Extraction, error) {
	f.calls++
	ex := &pkgsync.Extraction{
		Snapshot: f.snap,
		Stats: pkgsync.ExtractStats{
			Departments:   len(f.snap.Departments),
			Users:         len(f.snap.Users),
			ExpectedUsers: f.expected,
		},
	}
	return ex, ex.Stats.Verify()
}

// memTarget is an in-memory target.
type memTarget struct {
	depts  []reconcile.TargetDepartment
	users  []reconcile.TargetUser
	nextID int64
	writes int
}

func newMemTarget() *memTarget {
	return &memTarget{
		nextID: 200,
		users:  []reconcile.TargetUser{{ID: 1, UserName: constants.ProtectedAccount, NickName: "管理员", Status: constants.StatusActive}},
	}
}

func (m *memTarget) ListDepartments(context.Context) ([]reconcile.TargetDepartment, error) {
	return append([]reconcile.TargetDepartment(nil), m.depts...), nil
}

func (m *memTarget) CreateDepartment(_ context.Context, d reconcile.TargetDepartment) (int64, error) {
	m.writes++
	m.nextID++
	d.ID = m.nextID
	m.depts = append(m.depts, d)
	return d.ID, nil
}

func (m *memTarget) UpdateDepartment(_ context.Context, id int64, d reconcile.TargetDepartment) error {
	m.writes++
	for i := range m.depts {
		if m.depts[i].ID == id {
			d.ID, d.CorrelationID = id, m.depts[i].CorrelationID
			m.depts[i] = d
			return nil
		}
	}
	return errors.NewNotFoundError("department", fmt.Sprint(id))
}

func (m *memTarget) DisableDepartment(_ context.Context, id int64) error {
	m.writes++
	for i := range m.depts {
		if m.depts[i].ID == id {
			m.depts[i].Status = constants.StatusDisabled
		}
	}
	return nil
}

func (m *memTarget) ListUsers(context.Context) ([]reconcile.TargetUser, error) {
	return append([]reconcile.TargetUser(nil), m.users...), nil
}

func (m *memTarget) CreateUser(_ context.Context, u reconcile.TargetUser) (int64, error) {
	m.writes++
	m.nextID++
	u.ID = m.nextID
	m.users = append(m.users, u)
	return u.ID, nil
}

func (m *memTarget) UpdateUser(_ context.Context, u reconcile.TargetUser) error {
	m.writes++
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = u
			return nil
		}
	}
	return errors.NewNotFoundError("user", fmt.Sprint(u.ID))
}

func (m *memTarget) DisableUser(_ context.Context, id int64) error {
	m.writes++
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].Status = constants.StatusDisabled
		}
	}
	return nil
}

// recordingNotifier keeps every message it is sent.
type recordingNotifier struct {
	messages []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.messages = append(r.messages, msg)
	return nil
}

func newTestClient(t *testing.T, src Source, tgt reconcile.Target, opts ...Option) Client {
	t.Helper()
	opts = append([]Option{
		WithSource(src),
		WithTarget("memory", tgt),
		WithOutputDir(t.TempDir()),
	}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New()
	assert.True(t, errors.IsValidationError(err))

	_, err = New(WithSource(newFakeSource(1, 1)), WithTarget("memory", nil))
	assert.True(t, errors.IsValidationError(err))
}

func TestSyncRequiresTarget(t *testing.T) {
	c, err := New(WithSource(newFakeSource(1, 1)))
	require.NoError(t, err)

	_, err = c.Sync(context.Background())
	assert.True(t, errors.IsValidationError(err))
}

func TestSyncAbortsOnIncompleteExtraction(t *testing.T) {
	dir := t.TempDir()
	store := extract.New(dir)
	stale := newFakeSource(3, 3)
	require.NoError(t, store.Write(&stale.snap))
	require.True(t, store.Exists())

	src := newFakeSource(97, 100)
	tgt := newMemTarget()
	rec := metrics.New()
	metricsFile := filepath.Join(t.TempDir(), "orgsync.prom")
	c := newTestClient(t, src, tgt, WithMetrics(rec, metricsFile))

	result, err := c.Sync(context.Background(), pkgsync.WithAutoApprove(true), pkgsync.WithOutputDir(dir))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsIntegrity(err))

	var ie *errors.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 100, ie.Expected)
	assert.Equal(t, 97, ie.Actual)

	assert.False(t, store.Exists(), "stale extracts must be removed")
	assert.Zero(t, tgt.writes)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "orgsync_last_run_success 0")
	assert.Contains(t, string(data), `orgsync_last_run_failure{reason="integrity"} 1`)
}

func TestSyncAppliesAndIsIdempotent(t *testing.T) {
	src := newFakeSource(3, 3)
	tgt := newMemTarget()
	notifier := &recordingNotifier{}
	c := newTestClient(t, src, tgt, WithNotifier(notifier))

	var deptChanges, userChanges []differ.Change
	c.OnDepartmentChange(func(ch differ.Change) { deptChanges = append(deptChanges, ch) })
	c.OnUserChange(func(ch differ.Change) { userChanges = append(userChanges, ch) })

	ctx := context.Background()
	result, err := c.Sync(ctx, pkgsync.WithAutoApprove(true))
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "memory", result.Target)
	assert.Equal(t, 2, result.Departments.Created)
	assert.Equal(t, 3, result.Users.Created)
	assert.Len(t, deptChanges, 2)
	assert.Len(t, userChanges, 3)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, notify.Title, notifier.messages[0].Title)

	// every user lands in the mapped primary department
	backend := tgt.depts[1]
	assert.Equal(t, "od-backend", backend.CorrelationID)
	for _, u := range tgt.users[1:] {
		assert.Equal(t, backend.ID, u.DeptID)
	}

	result, err = c.Sync(ctx, pkgsync.WithAutoApprove(true))
	require.NoError(t, err)
	assert.False(t, result.HasChanges())
	assert.Len(t, notifier.messages, 1, "no notification without changes")
	assert.Equal(t, 2, src.calls)
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	src := newFakeSource(3, 3)
	tgt := newMemTarget()
	notifier := &recordingNotifier{}
	c := newTestClient(t, src, tgt, WithNotifier(notifier))

	var hooked int
	c.OnUserChange(func(differ.Change) { hooked++ })

	result, err := c.Sync(context.Background(), pkgsync.WithDryRun(true))
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.Departments.Created)
	assert.Equal(t, 3, result.Users.Created)
	assert.Zero(t, tgt.writes)
	assert.Zero(t, hooked)
	assert.Empty(t, notifier.messages)
}

func TestSyncUsesExistingExtracts(t *testing.T) {
	dir := t.TempDir()
	seed := newFakeSource(2, 2)
	require.NoError(t, extract.New(dir).Write(&seed.snap))

	src := newFakeSource(5, 5)
	tgt := newMemTarget()
	c := newTestClient(t, src, tgt)

	result, err := c.Sync(context.Background(), pkgsync.WithDryRun(true), pkgsync.WithOutputDir(dir))
	require.NoError(t, err)
	assert.Zero(t, src.calls)
	assert.True(t, result.Extract.FromExtracts)
	assert.Equal(t, 2, result.Users.Created)

	result, err = c.Sync(context.Background(), pkgsync.WithDryRun(true), pkgsync.WithOutputDir(dir), pkgsync.WithRefetch(true))
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.False(t, result.Extract.FromExtracts)
	assert.Equal(t, 5, result.Users.Created)
}

func TestFetchWritesExtracts(t *testing.T) {
	dir := t.TempDir()
	c := newTestClient(t, newFakeSource(3, 3), newMemTarget())

	ex, err := c.Fetch(context.Background(), pkgsync.WithOutputDir(dir))
	require.NoError(t, err)
	assert.Equal(t, 3, ex.Stats.Users)

	snap, err := extract.New(dir).Load()
	require.NoError(t, err)
	assert.Len(t, snap.Departments, 2)
	assert.Len(t, snap.Users, 3)
}

func TestSyncRecordsMetrics(t *testing.T) {
	rec := metrics.New()
	metricsFile := filepath.Join(t.TempDir(), "orgsync.prom")
	c := newTestClient(t, newFakeSource(3, 3), newMemTarget(), WithMetrics(rec, metricsFile))

	_, err := c.Sync(context.Background(), pkgsync.WithAutoApprove(true))
	require.NoError(t, err)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "orgsync_last_run_success 1")
	assert.Contains(t, string(data), `orgsync_last_run_changes{entity="user",type="create"} 3`)
}
