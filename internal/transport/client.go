package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// RetryPolicy bounds how often a request is retried. Transient failures
// (network errors, 5xx) and rate limiting are budgeted separately.
type RetryPolicy struct {
	Attempts          int
	Delay             time.Duration
	RateLimitAttempts int
	RateLimitDelay    time.Duration
}

// DefaultRetryPolicy returns the production retry budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:          constants.MaxRetries,
		Delay:             constants.RetryDelay,
		RateLimitAttempts: constants.MaxRateLimitRetries,
		RateLimitDelay:    constants.RateLimitRetryDelay,
	}
}

// Envelope is implemented by response bodies that carry an application
// status next to the HTTP status. A non-nil error fails the request.
type Envelope interface {
	Err() error
}

// Client provides HTTP client functionality with authentication, pacing,
// and bounded retries.
type Client struct {
	service string
	http    *http.Client
	auth    Authenticator
	tokens  TokenSource
	limiter *rate.Limiter
	retry   RetryPolicy

	rateLimitRetries atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithAuth sets how tokens are applied to requests.
func WithAuth(auth Authenticator, tokens TokenSource) Option {
	return func(c *Client) {
		c.auth = auth
		c.tokens = tokens
	}
}

// WithRateLimit paces requests to rps with the given burst. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryPolicy sets the retry budget.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// New creates a new transport client for the named service.
func New(service string, opts ...Option) *Client {
	c := &Client{
		service: service,
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    &NoAuth{},
		limiter: rate.NewLimiter(rate.Limit(constants.RequestsPerSecond), constants.BurstSize),
		retry:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RateLimitRetries returns how many times a request was retried because the
// service rate limited it.
func (c *Client) RateLimitRetries() int {
	return int(c.rateLimitRetries.Load())
}

// DoJSON sends body (when non-nil) as JSON and decodes the response into
// out, retrying per the client's policy. out may implement Envelope.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.WrapParse("json", "request", err)
		}
	}

	log := logging.FromContext(ctx)
	transient, limited := 0, 0
	for {
		err := c.do(ctx, method, url, payload, out)
		if err == nil {
			return nil
		}

		var delay time.Duration
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.IsRateLimited(err) && limited+1 < c.retry.RateLimitAttempts:
			limited++
			c.rateLimitRetries.Add(1)
			delay = c.retry.RateLimitDelay
			log.Warn().Err(err).Str("url", url).Int("attempt", limited).Msg("Rate limited, retrying")
		case (errors.IsTransient(err) || errors.IsUnavailable(err)) && transient+1 < c.retry.Attempts:
			transient++
			delay = c.retry.Delay
			log.Warn().Err(err).Str("url", url).Int("attempt", transient).Msg("Request failed, retrying")
		default:
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Get performs a GET request decoding JSON into out.
func (c *Client) Get(ctx context.Context, url string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, url, nil, out)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+url, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		c.auth.Apply(req, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.WrapTransient(&errors.APIError{
			Service:  c.service,
			Message:  err.Error(),
			Endpoint: url,
			Err:      err,
		})
	}
	return DecodeResponse(resp, c.service, out)
}
