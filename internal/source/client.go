package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/util"
	"github.com/ppiankov/newscheck/internal/worker"
)

const (
	defaultRetryDelay       = 200 * time.Millisecond
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// ErrRejected marks provider responses that must not be retried (4xx other than 429)
var ErrRejected = errors.New("request rejected")

// StatusError is a non-2xx provider response
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status: %d %s: %s", e.Code, e.Status, e.Body)
	}
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Retryable reports whether the provider may succeed on a later attempt
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client is the shared outbound HTTP client for providers. It applies the
// user agent, body cap, per-host rate limit, transient retry and a per-host
// circuit breaker.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	maxRetries int
	retrier    retry.Retry[[]byte]

	mu       sync.RWMutex
	breakers map[string]circuitbreaker.CircuitBreaker[[]byte]
}

// NewClient creates a provider client from HTTP configuration. limiter may be nil.
func NewClient(cfg model.HTTPConfig, limiter *worker.Limiter) *Client {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	c := &Client{
		httpClient: util.NewHTTPClient(30*time.Second, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		limiter:    limiter,
		maxRetries: maxRetries,
		breakers:   make(map[string]circuitbreaker.CircuitBreaker[[]byte]),
	}
	return c.WithRetryDelay(defaultRetryDelay)
}

// WithRetryDelay sets the initial backoff between transient retries
func (c *Client) WithRetryDelay(d time.Duration) *Client {
	c.retrier = retry.New[[]byte](retry.Config{
		MaxAttempts:   c.maxRetries + 1,
		InitialDelay:  d,
		BackoffPolicy: retry.BackoffExponential,
		Multiplier:    2.0,
		// 4xx responses are final
		NonRetryableErrors: []error{ErrRejected, context.Canceled, context.DeadlineExceeded},
	})
	return c
}

// HTTPClient exposes the underlying client for collaborators such as the
// robots.txt checker
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Limiter returns the per-host limiter, which may be nil
func (c *Client) Limiter() *worker.Limiter {
	return c.limiter
}

// Get fetches rawURL and returns the body
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	// Rejections are the caller's problem, not the host's, so they do not
	// count against the breaker
	var rejected error
	breaker := c.getBreaker(rawURL)
	body, err := breaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
		body, err := c.retrier.Do(ctx, func(ctx context.Context) ([]byte, error) {
			return c.do(ctx, rawURL, header)
		})
		if errors.Is(err, ErrRejected) {
			rejected = err
			return nil, nil
		}
		return body, err
	})
	if rejected != nil {
		return nil, rejected
	}
	return body, err
}

// GetJSON fetches rawURL and decodes the JSON body into v
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, v interface{}) error {
	body, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRejected, err)
	}

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch: %w", ctxErr)
		}
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{
			Code:   resp.StatusCode,
			Status: http.StatusText(resp.StatusCode),
			Body:   strings.TrimSpace(string(body)),
		}
		if statusErr.Retryable() {
			return nil, statusErr
		}
		return nil, fmt.Errorf("%w: %w", ErrRejected, statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// getBreaker returns the circuit breaker for a host, creating one if needed
func (c *Client) getBreaker(rawURL string) circuitbreaker.CircuitBreaker[[]byte] {
	host := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		host = strings.ToLower(parsed.Host)
	}

	c.mu.RLock()
	breaker, exists := c.breakers[host]
	c.mu.RUnlock()

	if exists {
		return breaker
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if breaker, exists = c.breakers[host]; exists {
		return breaker
	}

	breaker = circuitbreaker.New[[]byte](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    breakerOpenTimeout,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
	})
	c.breakers[host] = breaker

	return breaker
}

// BreakerState returns the circuit breaker state for a host
func (c *Client) BreakerState(host string) string {
	c.mu.RLock()
	breaker, exists := c.breakers[strings.ToLower(host)]
	c.mu.RUnlock()

	if !exists {
		return "unknown"
	}
	return breaker.State().String()
}
