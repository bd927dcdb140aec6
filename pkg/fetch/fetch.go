// Package fetch is the HTTP gateway shared by the metadata sources. Every
// request is keyed by its method, URL, query, and body, and answered from the
// injected cache store when possible. Misses go to the network behind a rate
// limiter with retry and exponential backoff on throttling and server errors.
package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/researchgraph/backend/pkg/cache"
	"github.com/researchgraph/backend/pkg/logging"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries bounds attempts for a single logical request.
	DefaultMaxRetries = 5

	// backoffFactor grows the wait after each throttled attempt.
	backoffFactor = 2

	// serverErrorWait is the pause before retrying a 5xx response.
	serverErrorWait = time.Second
)

// StatusError is returned when the remote API answers with a non-success
// status that is not worth retrying.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

// Client fetches JSON documents over HTTP with caching, rate limiting, and
// retries. The zero value is not usable; construct with New.
type Client struct {
	httpClient *http.Client
	store      cache.Store
	limiter    *rate.Limiter
	maxRetries int
	headers    http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithMaxRetries sets the attempt budget for a single request.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithHeader adds a header sent on every request, e.g. an API key or a
// User-Agent contact address.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// New creates a Client backed by the given cache store.
func New(store cache.Store, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		store:      store,
		maxRetries: DefaultMaxRetries,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON performs a cached GET and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, rawURL, query, nil, out)
}

// PostJSON performs a cached POST with a JSON body and decodes the response
// into out.
func (c *Client) PostJSON(ctx context.Context, rawURL string, query url.Values, body any, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, rawURL, query, encoded, out)
}

func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, body []byte, out any) error {
	target := rawURL
	if len(query) > 0 {
		target = rawURL + "?" + query.Encode()
	}
	key := requestKey(method, target, body)

	if cached, ok, err := c.store.Get(key); err == nil && ok {
		logging.Debug("cache hit", "url", target)
		return json.Unmarshal(cached, out)
	} else if err != nil {
		// A broken cache should not break the request.
		logging.Warn("cache read failed", "url", target, "error", err)
	}

	payload, err := c.roundTrip(ctx, method, target, body)
	if err != nil {
		return err
	}

	if err := c.store.Put(key, payload); err != nil {
		logging.Warn("cache write failed", "url", target, "error", err)
	}
	return json.Unmarshal(payload, out)
}

// roundTrip performs the network request with retries. Throttling waits
// backoffFactor^attempt seconds, server errors wait one second, and anything
// else fails immediately.
func (c *Client) roundTrip(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		payload, retry, err := c.attempt(ctx, method, target, body)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}

		wait := serverErrorWait
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
			wait = time.Duration(pow(backoffFactor, attempt)) * time.Second
			logging.Warn("rate limited, backing off", "url", target, "wait", wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, target string, body []byte) (payload []byte, retry bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, false, err
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failures (DNS, resets) are worth retrying.
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, true, &StatusError{StatusCode: resp.StatusCode, URL: target}
	case resp.StatusCode >= 400:
		io.Copy(io.Discard, resp.Body)
		return nil, false, &StatusError{StatusCode: resp.StatusCode, URL: target}
	}

	payload, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return payload, false, nil
}

func requestKey(method, target string, body []byte) string {
	if len(body) == 0 {
		return method + " " + target
	}
	sum := sha256.Sum256(body)
	return method + " " + target + " " + hex.EncodeToString(sum[:])
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func pow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
