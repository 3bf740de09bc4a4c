// Package ruoyiapi drives the RuoYi system administration REST API. It
// serves deployments where the database is not reachable: department
// correlation rides on a feishuDeptId field and the user correlation key is
// kept in the account remark.
package ruoyiapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/agentstation/orgsync/internal/transport"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/reconcile"
)

var (
	_ reconcile.Target              = (*Target)(nil)
	_ reconcile.CorrelationReporter = (*Target)(nil)
)

const listPageSize = 500

// Config holds the REST connection settings.
type Config struct {
	BaseURL  string
	Username string
	Password string

	// MatchByHandle ignores remarks and matches accounts by user name.
	MatchByHandle bool

	// FailureThreshold consecutive transport failures open the breaker.
	FailureThreshold uint32
	// Cooldown is how long the breaker stays open.
	Cooldown time.Duration

	HTTPOptions []transport.Option
}

// Validate checks that the connection settings are complete.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.NewConfigError("ruoyiapi", "RUOYI_BASE_URL is required", errors.ErrCredentialsRequired)
	case c.Username == "" || c.Password == "":
		return errors.NewConfigError("ruoyiapi", "RUOYI_USERNAME and RUOYI_PASSWORD are required", errors.ErrCredentialsRequired)
	}
	return nil
}

// Target implements reconcile.Target over HTTP.
type Target struct {
	cfg     Config
	base    string
	http    *transport.Client
	breaker *gobreaker.CircuitBreaker
	session *session
}

// New creates a Target. The first request logs in.
func New(ctx context.Context, cfg Config) (*Target, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	s := &session{
		http:     transport.New(service, cfg.HTTPOptions...),
		url:      base + "/auth/login",
		username: cfg.Username,
		password: cfg.Password,
	}
	opts := append(append([]transport.Option{}, cfg.HTTPOptions...), transport.WithAuth(&transport.BearerAuth{}, s))

	log := logging.FromContext(ctx)
	t := &Target{
		cfg:     cfg,
		base:    base,
		http:    transport.New(service, opts...),
		session: s,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        service,
			MaxRequests: 1,
			Timeout:     cfg.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
			},
		}),
	}
	return t, nil
}

// HasCorrelationField implements reconcile.CorrelationReporter.
func (t *Target) HasCorrelationField() bool {
	return !t.cfg.MatchByHandle
}

// call runs one request through the breaker. Only transport failures count
// against it; an application error from a healthy server does not.
func (t *Target) call(ctx context.Context, method, path string, body, out any) error {
	var appErr error
	_, err := t.breaker.Execute(func() (any, error) {
		err := t.http.DoJSON(ctx, method, t.base+path, body, out)
		if err != nil && !errors.IsTransient(err) && !errors.IsUnavailable(err) {
			appErr = err
			return nil, nil
		}
		return nil, err
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.WrapTransient(&errors.APIError{Service: service, Message: err.Error(), Endpoint: path, Err: errors.ErrUnavailable})
	}
	if err != nil {
		return err
	}
	return appErr
}

// ListDepartments returns every department the API lists.
func (t *Target) ListDepartments(ctx context.Context) ([]reconcile.TargetDepartment, error) {
	var resp deptList
	if err := t.call(ctx, http.MethodGet, "/system/dept/list", nil, &resp); err != nil {
		return nil, errors.WrapResource("list", "departments", "", err)
	}
	out := make([]reconcile.TargetDepartment, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = toTargetDepartment(d)
	}
	return out, nil
}

// CreateDepartment creates a department. The API does not return the new
// id, so the department is looked up by its correlation id afterwards.
func (t *Target) CreateDepartment(ctx context.Context, d reconcile.TargetDepartment) (int64, error) {
	var resp result
	if err := t.call(ctx, http.MethodPost, "/system/dept", fromTargetDepartment(d), &resp); err != nil {
		return 0, errors.WrapResource("create", "department", d.CorrelationID, err)
	}

	depts, err := t.ListDepartments(ctx)
	if err != nil {
		return 0, err
	}
	for _, cur := range depts {
		if cur.CorrelationID == d.CorrelationID {
			return cur.ID, nil
		}
	}
	return 0, errors.NewNotFoundError("department", d.CorrelationID)
}

// UpdateDepartment rewrites a department.
func (t *Target) UpdateDepartment(ctx context.Context, id int64, d reconcile.TargetDepartment) error {
	body := fromTargetDepartment(d)
	body.DeptID = id
	var resp result
	if err := t.call(ctx, http.MethodPut, "/system/dept", body, &resp); err != nil {
		return errors.WrapResource("update", "department", strconv.FormatInt(id, 10), err)
	}
	return nil
}

// DisableDepartment sets a department's status to disabled.
func (t *Target) DisableDepartment(ctx context.Context, id int64) error {
	sid := strconv.FormatInt(id, 10)
	var cur deptResult
	if err := t.call(ctx, http.MethodGet, "/system/dept/"+sid, nil, &cur); err != nil {
		return errors.WrapResource("disable", "department", sid, err)
	}
	body := cur.Data
	body.DeptID = id
	body.Status = "1"
	var resp result
	if err := t.call(ctx, http.MethodPut, "/system/dept", body, &resp); err != nil {
		return errors.WrapResource("disable", "department", sid, err)
	}
	return nil
}

// ListUsers pages through every account.
func (t *Target) ListUsers(ctx context.Context) ([]reconcile.TargetUser, error) {
	var out []reconcile.TargetUser
	for page := 1; ; page++ {
		q := url.Values{"pageNum": {strconv.Itoa(page)}, "pageSize": {strconv.Itoa(listPageSize)}}
		var resp userPage
		if err := t.call(ctx, http.MethodGet, "/system/user/list?"+q.Encode(), nil, &resp); err != nil {
			return nil, errors.WrapResource("list", "users", "", err)
		}
		for _, u := range resp.Rows {
			out = append(out, t.toTargetUser(u))
		}
		if len(resp.Rows) == 0 || len(out) >= resp.Total {
			return out, nil
		}
	}
}

// CreateUser creates an account with its roles. Like departments, the new
// id is found by listing afterwards.
func (t *Target) CreateUser(ctx context.Context, u reconcile.TargetUser) (int64, error) {
	var resp result
	if err := t.call(ctx, http.MethodPost, "/system/user", fromTargetUser(u), &resp); err != nil {
		return 0, errors.WrapResource("create", "user", u.UserName, err)
	}

	users, err := t.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	for _, cur := range users {
		if cur.UserName == u.UserName {
			return cur.ID, nil
		}
	}
	return 0, errors.NewNotFoundError("user", u.UserName)
}

// UpdateUser rewrites an account. The password is never sent.
func (t *Target) UpdateUser(ctx context.Context, u reconcile.TargetUser) error {
	body := fromTargetUser(u)
	body.Password = ""
	var resp result
	if err := t.call(ctx, http.MethodPut, "/system/user", body, &resp); err != nil {
		return errors.WrapResource("update", "user", strconv.FormatInt(u.ID, 10), err)
	}
	return nil
}

// DisableUser sets an account's status to disabled.
func (t *Target) DisableUser(ctx context.Context, id int64) error {
	body := map[string]any{"userId": id, "status": "1"}
	var resp result
	if err := t.call(ctx, http.MethodPut, "/system/user/changeStatus", body, &resp); err != nil {
		return errors.WrapResource("disable", "user", strconv.FormatInt(id, 10), err)
	}
	return nil
}

func toTargetDepartment(d dept) reconcile.TargetDepartment {
	return reconcile.TargetDepartment{
		ID:            d.DeptID,
		ParentID:      d.ParentID,
		Ancestors:     d.Ancestors,
		Name:          d.DeptName,
		OrderNum:      d.OrderNum,
		Level:         d.Level,
		Status:        d.Status,
		DelFlag:       d.DelFlag,
		CorrelationID: d.FeishuDeptID,
	}
}

func fromTargetDepartment(d reconcile.TargetDepartment) dept {
	return dept{
		ParentID:     d.ParentID,
		Ancestors:    d.Ancestors,
		DeptName:     d.Name,
		OrderNum:     d.OrderNum,
		Level:        d.Level,
		Status:       d.Status,
		FeishuDeptID: d.CorrelationID,
	}
}

// toTargetUser reads the correlation key from the remark. Remarks that are
// not a key are left to operators.
func (t *Target) toTargetUser(u user) reconcile.TargetUser {
	tu := reconcile.TargetUser{
		ID:       u.UserID,
		DeptID:   u.DeptID,
		UserName: u.UserName,
		NickName: u.NickName,
		Email:    u.Email,
		Phone:    u.Phonenumber,
		Sex:      u.Sex,
		Status:   u.Status,
		DelFlag:  u.DelFlag,
	}
	if !t.cfg.MatchByHandle {
		if key, err := uuid.Parse(strings.TrimSpace(u.Remark)); err == nil {
			tu.CorrelationKey = key.String()
		}
	}
	return tu
}

func fromTargetUser(u reconcile.TargetUser) user {
	return user{
		UserID:      u.ID,
		DeptID:      u.DeptID,
		UserName:    u.UserName,
		NickName:    u.NickName,
		Email:       u.Email,
		Phonenumber: u.Phone,
		Sex:         u.Sex,
		Password:    u.Password,
		Status:      u.Status,
		RoleIDs:     u.RoleIDs,
		Remark:      u.CorrelationKey,
	}
}

// session logs in once and reuses the access token for the run.
type session struct {
	http     *transport.Client
	url      string
	username string
	password string

	mu    sync.Mutex
	token string
}

// Token implements transport.TokenSource.
func (s *session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	var resp loginResult
	body := map[string]string{"username": s.username, "password": s.password}
	if err := s.http.DoJSON(ctx, http.MethodPost, s.url, body, &resp); err != nil {
		return "", errors.NewAuthenticationError(service, "login", "login failed", err)
	}
	if resp.Data.AccessToken == "" {
		return "", errors.NewAuthenticationError(service, "login", "empty access token", nil)
	}
	s.token = resp.Data.AccessToken
	return s.token, nil
}
