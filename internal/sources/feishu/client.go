// Package feishu extracts the organization directory from the Feishu (Lark)
// contact API: the department tree, every department's direct members, and
// the authoritative member total used to detect incomplete extractions.
package feishu

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agentstation/orgsync/internal/transport"
	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
)

// Config holds the source connection settings.
type Config struct {
	AppID     string
	AppSecret string
	BaseURL   string

	PageSize          int
	DepartmentWorkers int
	UserWorkers       int
	Sequential        bool

	RequestsPerSecond float64
	Burst             int
	Retry             transport.RetryPolicy
	HTTPClient        *http.Client
}

// DefaultConfig returns the production settings without credentials.
func DefaultConfig() Config {
	return Config{
		BaseURL:           constants.FeishuBaseURL,
		PageSize:          constants.DefaultPageSize,
		DepartmentWorkers: constants.MaxConcurrentDepartmentFetches,
		UserWorkers:       constants.MaxConcurrentUserFetches,
		RequestsPerSecond: constants.RequestsPerSecond,
		Burst:             constants.BurstSize,
		Retry:             transport.DefaultRetryPolicy(),
	}
}

// Validate checks that credentials are present. It runs before any network call.
func (c Config) Validate() error {
	if c.AppID == "" {
		return errors.NewConfigError("feishu", "FEISHU_APP_ID is required", errors.ErrCredentialsRequired)
	}
	if c.AppSecret == "" {
		return errors.NewConfigError("feishu", "FEISHU_APP_SECRET is required", errors.ErrCredentialsRequired)
	}
	return nil
}

// Client talks to the Feishu contact API. Create one per run: it carries
// the run's rate-limit retry counter.
type Client struct {
	cfg  Config
	base string
	http *transport.Client
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.DepartmentWorkers <= 0 {
		cfg.DepartmentWorkers = def.DepartmentWorkers
	}
	if cfg.UserWorkers <= 0 {
		cfg.UserWorkers = def.UserWorkers
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = def.Retry
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	opts := []transport.Option{
		transport.WithRetryPolicy(cfg.Retry),
		transport.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, transport.WithHTTPClient(cfg.HTTPClient))
	}

	tokens := &tenantToken{
		http:   transport.New(service, opts...),
		url:    base + "/auth/v3/tenant_access_token/internal",
		appID:  cfg.AppID,
		secret: cfg.AppSecret,
	}
	opts = append(opts, transport.WithAuth(&transport.BearerAuth{}, tokens))

	return &Client{
		cfg:  cfg,
		base: base,
		http: transport.New(service, opts...),
	}, nil
}

// RateLimitRetries returns how many requests were retried after rate limiting.
func (c *Client) RateLimitRetries() int {
	return c.http.RateLimitRetries()
}

// TenantName returns the organization name.
func (c *Client) TenantName(ctx context.Context) (string, error) {
	var resp tenantResponse
	if err := c.http.Get(ctx, c.base+"/tenant/v2/tenant/query", &resp); err != nil {
		return "", err
	}
	return resp.Data.Tenant.Name, nil
}

// TotalMembers returns the member count of the root department, which the
// API reports for the whole organization.
func (c *Client) TotalMembers(ctx context.Context) (int, error) {
	q := url.Values{"department_id_type": {"open_department_id"}}
	var resp departmentResponse
	if err := c.http.Get(ctx, c.base+"/contact/v3/departments/0?"+q.Encode(), &resp); err != nil {
		return 0, err
	}
	return resp.Data.Department.MemberCount, nil
}

// tenantToken exchanges the app credentials for a tenant access token and
// caches it until shortly before it expires.
type tenantToken struct {
	http   *transport.Client
	url    string
	appID  string
	secret string

	mu      sync.Mutex
	token   string
	expires time.Time
}

// Token implements transport.TokenSource.
func (t *tenantToken) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expires) {
		return t.token, nil
	}

	var resp tokenResponse
	body := map[string]string{"app_id": t.appID, "app_secret": t.secret}
	if err := t.http.DoJSON(ctx, http.MethodPost, t.url, body, &resp); err != nil {
		return "", errors.NewAuthenticationError(service, "tenant_access_token", "token exchange failed", err)
	}
	if resp.TenantAccessToken == "" {
		return "", errors.NewAuthenticationError(service, "tenant_access_token", "empty token", nil)
	}

	ttl := time.Duration(resp.Expire) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	t.token = resp.TenantAccessToken
	t.expires = time.Now().Add(ttl - time.Minute)
	return t.token, nil
}
