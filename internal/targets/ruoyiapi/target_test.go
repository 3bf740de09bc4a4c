package ruoyiapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/internal/transport"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/reconcile"
)

const key = "3a4c511b-c6d9-54fa-a0c7-668c33c66c23"

// fakeRuoYi is an in-memory RuoYi admin API.
type fakeRuoYi struct {
	mu     sync.Mutex
	depts  []dept
	users  []user
	nextID int64

	logins   atomic.Int64
	requests atomic.Int64
	down     atomic.Bool
}

func newFakeRuoYi() *fakeRuoYi {
	return &fakeRuoYi{
		depts: []dept{{DeptID: 100, ParentID: 0, Ancestors: "0", DeptName: "Acme", Status: "0", DelFlag: "0"}},
		users: []user{
			{UserID: 1, DeptID: 100, UserName: "admin", NickName: "Admin", Status: "0", DelFlag: "0", Remark: "管理员"},
			{UserID: 2, DeptID: 100, UserName: "san.zhang", NickName: "张三", Status: "0", DelFlag: "0", Remark: key},
		},
		nextID: 300,
	}
}

func (f *fakeRuoYi) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	if f.down.Load() {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	write := func(v any) { _ = json.NewEncoder(w).Encode(v) }
	ok := map[string]any{"code": 200, "msg": "操作成功"}

	if r.URL.Path == "/auth/login" {
		f.logins.Add(1)
		write(map[string]any{"code": 200, "data": map[string]any{"access_token": "jwt"}})
		return
	}
	if r.Header.Get("Authorization") != "Bearer jwt" {
		write(map[string]any{"code": 401, "msg": "unauthorized"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/system/dept/list":
		write(map[string]any{"code": 200, "data": f.depts})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/system/dept/"):
		id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/system/dept/"), 10, 64)
		for _, d := range f.depts {
			if d.DeptID == id {
				write(map[string]any{"code": 200, "data": d})
				return
			}
		}
		write(map[string]any{"code": 500, "msg": "not found"})
	case r.Method == http.MethodPost && r.URL.Path == "/system/dept":
		var d dept
		_ = json.NewDecoder(r.Body).Decode(&d)
		f.nextID++
		d.DeptID = f.nextID
		f.depts = append(f.depts, d)
		write(ok)
	case r.Method == http.MethodPut && r.URL.Path == "/system/dept":
		var d dept
		_ = json.NewDecoder(r.Body).Decode(&d)
		for i := range f.depts {
			if f.depts[i].DeptID == d.DeptID {
				f.depts[i] = d
			}
		}
		write(ok)
	case r.Method == http.MethodGet && r.URL.Path == "/system/user/list":
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		num, _ := strconv.Atoi(r.URL.Query().Get("pageNum"))
		start := min((num-1)*size, len(f.users))
		end := min(start+size, len(f.users))
		write(map[string]any{"code": 200, "total": len(f.users), "rows": f.users[start:end]})
	case r.Method == http.MethodPost && r.URL.Path == "/system/user":
		var u user
		_ = json.NewDecoder(r.Body).Decode(&u)
		for _, cur := range f.users {
			if cur.UserName == u.UserName {
				write(map[string]any{"code": 500, "msg": "新增用户'" + u.UserName + "'失败，登录账号已存在"})
				return
			}
		}
		f.nextID++
		u.UserID = f.nextID
		f.users = append(f.users, u)
		write(ok)
	case r.Method == http.MethodPut && r.URL.Path == "/system/user":
		var u user
		_ = json.NewDecoder(r.Body).Decode(&u)
		for i := range f.users {
			if f.users[i].UserID == u.UserID {
				u.Password = f.users[i].Password
				f.users[i] = u
			}
		}
		write(ok)
	case r.Method == http.MethodPut && r.URL.Path == "/system/user/changeStatus":
		var body struct {
			UserID int64  `json:"userId"`
			Status string `json:"status"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for i := range f.users {
			if f.users[i].UserID == body.UserID {
				f.users[i].Status = body.Status
			}
		}
		write(ok)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTarget(t *testing.T, f *fakeRuoYi, mutate ...func(*Config)) *Target {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:  srv.URL,
		Username: "admin",
		Password: "admin123",
		HTTPOptions: []transport.Option{
			transport.WithRateLimit(0, 0),
			transport.WithRetryPolicy(transport.RetryPolicy{Attempts: 1, RateLimitAttempts: 1}),
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	target, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return target
}

func TestConfigValidate(t *testing.T) {
	_, err := New(context.Background(), Config{Username: "a", Password: "b"})
	assert.True(t, errors.IsCredentialsError(err))
	_, err = New(context.Background(), Config{BaseURL: "http://x", Username: "a"})
	assert.True(t, errors.IsCredentialsError(err))
}

func TestDepartments(t *testing.T) {
	f := newFakeRuoYi()
	target := newTarget(t, f)
	ctx := context.Background()

	id, err := target.CreateDepartment(ctx, reconcile.TargetDepartment{
		ParentID: 100, Ancestors: "0,100", Name: "Engineering", Level: 1, Status: "0", CorrelationID: "od-eng",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(301), id)

	require.NoError(t, target.UpdateDepartment(ctx, id, reconcile.TargetDepartment{
		ParentID: 100, Ancestors: "0,100", Name: "R&D", Level: 1, Status: "0", CorrelationID: "od-eng",
	}))
	require.NoError(t, target.DisableDepartment(ctx, id))

	depts, err := target.ListDepartments(ctx)
	require.NoError(t, err)
	require.Len(t, depts, 2)
	assert.Equal(t, "R&D", depts[1].Name)
	assert.Equal(t, "od-eng", depts[1].CorrelationID)
	assert.True(t, depts[1].Disabled())
	assert.Equal(t, int64(1), f.logins.Load(), "one login per run")
}

func TestUsers(t *testing.T) {
	f := newFakeRuoYi()
	target := newTarget(t, f)
	ctx := context.Background()
	assert.True(t, target.HasCorrelationField())

	users, err := target.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Empty(t, users[0].CorrelationKey, "free-text remark is not a key")
	assert.Equal(t, key, users[1].CorrelationKey)

	id, err := target.CreateUser(ctx, reconcile.TargetUser{
		DeptID: 100, UserName: "si.li", NickName: "李四", Password: "123456", Status: "0",
		RoleIDs: []int64{2}, CorrelationKey: "08a25a33-1b4e-5ffc-baf3-735c39f4739d",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(301), id)
	assert.Equal(t, []int64{2}, f.users[2].RoleIDs)
	assert.Equal(t, "08a25a33-1b4e-5ffc-baf3-735c39f4739d", f.users[2].Remark)

	require.NoError(t, target.UpdateUser(ctx, reconcile.TargetUser{ID: id, DeptID: 100, UserName: "si.li", NickName: "李四四", Status: "0"}))
	assert.Equal(t, "李四四", f.users[2].NickName)
	assert.Equal(t, "123456", f.users[2].Password, "update never sends a password")

	require.NoError(t, target.DisableUser(ctx, id))
	assert.Equal(t, "1", f.users[2].Status)

	_, err = target.CreateUser(ctx, reconcile.TargetUser{UserName: "si.li"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "登录账号已存在")
}

func TestMatchByHandle(t *testing.T) {
	target := newTarget(t, newFakeRuoYi(), func(c *Config) { c.MatchByHandle = true })
	assert.False(t, target.HasCorrelationField())

	users, err := target.ListUsers(context.Background())
	require.NoError(t, err)
	for _, u := range users {
		assert.Empty(t, u.CorrelationKey)
	}
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	f := newFakeRuoYi()
	target := newTarget(t, f, func(c *Config) {
		c.FailureThreshold = 2
		c.Cooldown = time.Minute
	})
	ctx := context.Background()

	_, err := target.ListDepartments(ctx)
	require.NoError(t, err, "logs in while healthy")

	f.down.Store(true)
	for range 2 {
		_, err = target.ListDepartments(ctx)
		require.Error(t, err)
	}
	before := f.requests.Load()
	_, err = target.ListDepartments(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))
	assert.Equal(t, before, f.requests.Load(), "open breaker short-circuits")
}

func TestApplicationErrorsDoNotTripBreaker(t *testing.T) {
	f := newFakeRuoYi()
	target := newTarget(t, f, func(c *Config) { c.FailureThreshold = 1 })
	ctx := context.Background()

	for range 3 {
		_, err := target.CreateUser(ctx, reconcile.TargetUser{UserName: "admin"})
		require.Error(t, err)
	}
	_, err := target.ListUsers(ctx)
	assert.NoError(t, err)
}
