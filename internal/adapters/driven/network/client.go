// Package network implements the HTTP capability used by provider
// authorities.
package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.Network = (*Client)(nil)

const (
	// DefaultRate is the sustained request rate across all authorities.
	DefaultRate = 10

	// DefaultBurst allows a handful of probes to run back to back.
	DefaultBurst = 5

	// MaxBodySize caps how much of a response body is read.
	MaxBodySize = 4 << 20

	// UserAgent identifies the broker to providers.
	UserAgent = "git-credential-broker"
)

// Client is a rate-limited HTTP client with a default timeout.
type Client struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	timeout time.Duration
	agent   string
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the underlying transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithRate replaces the token bucket.
func WithRate(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) { c.agent = agent }
}

// NewClient creates a client whose requests time out after timeout.
// A zero timeout uses domain.DefaultHTTPTimeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = domain.DefaultHTTPTimeout
	}
	c := &Client{
		base:    http.DefaultTransport,
		limiter: rate.NewLimiter(rate.Limit(DefaultRate), DefaultBurst),
		timeout: timeout,
		agent:   UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send executes req and reads the whole body.
func (c *Client) Send(ctx context.Context, req driven.Request) (*driven.Response, error) {
	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	switch {
	case req.Authorization != "":
		httpReq.Header.Set("Authorization", req.Authorization)
	case req.BearerToken != "":
		httpReq.Header.Set("Authorization", "Bearer "+req.BearerToken)
	case req.BasicAuth != nil:
		httpReq.SetBasicAuth(req.BasicAuth.Username, req.BasicAuth.Password)
	}

	client := &http.Client{Transport: c.transport()}
	if req.NoRedirect {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, classify(ctx, err)
	}

	return &driven.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// HTTPClient returns a client sharing the limiter and timeout, for SDKs.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{
		Transport: c.transport(),
		Timeout:   c.timeout,
	}
}

func (c *Client) transport() http.RoundTripper {
	return &limitedTransport{base: c.base, limiter: c.limiter, agent: c.agent}
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

// limitedTransport waits on the token bucket before every round trip.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	agent   string
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	if t.agent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}
