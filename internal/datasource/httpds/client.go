// Package httpds downloads table inputs over HTTP, retrying transient
// failures with exponential backoff.
package httpds

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrStatus is returned when the server answers with a non-2xx status.
var ErrStatus = errors.New("httpds: unexpected status")

// Config configures a Client. Zero values get defaults: 60s timeout, 3
// retries, 200ms initial backoff and 5s max backoff.
type Config struct {
	Timeout time.Duration

	// MaxRetries counts attempts after the first one. Negative means none.
	MaxRetries int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	InsecureSkipVerify bool

	// UserAgent is sent with every request when set.
	UserAgent string

	// Transport replaces the default transport, ignoring InsecureSkipVerify.
	Transport http.RoundTripper
}

type Client struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	userAgent      string

	sleep func(context.Context, time.Duration) error
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in
			},
		}
	}
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		userAgent:      cfg.UserAgent,
		sleep:          sleepContext,
	}
}

// Get fetches url. 5xx, 429 and transport errors are retried; any other
// non-2xx status fails with ErrStatus. The caller closes the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if url == "" {
		return nil, errors.New("httpds: empty url")
	}
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoffDuration(c.initialBackoff, attempt-1, c.maxBackoff)); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case isRetryableStatus(resp.StatusCode):
			resp.Body.Close()
			lastErr = fmt.Errorf("%w %d from %s", ErrStatus, resp.StatusCode, url)
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("%w %d from %s", ErrStatus, resp.StatusCode, url)
		}
	}
	return nil, lastErr
}

// Source returns a datasource reading url through c.
func (c *Client) Source(url string) *URL { return &URL{client: c, url: url} }

// URL is a remote input.
type URL struct {
	client *Client
	url    string
}

func (u *URL) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := u.client.Get(ctx, u.url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (u *URL) String() string { return u.url }

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoffDuration returns initial * 2^attempt, capped at limit.
func backoffDuration(initial time.Duration, attempt int, limit time.Duration) time.Duration {
	d := initial << attempt
	if d > limit || d <= 0 {
		return limit
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
