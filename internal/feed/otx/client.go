// Package otx implements the feed client for AlienVault-OTX-style
// pulse APIs: paginated fetch of subscribed pulses with rate-limit
// backoff and bounded retries.
package otx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/seclane/pulsefeed/internal/core/domain"
	"github.com/seclane/pulsefeed/internal/core/ports/driven"
	"github.com/seclane/pulsefeed/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for transient errors.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second

	// DefaultPageLimit is the page size requested from the feed.
	DefaultPageLimit = 50

	// HeaderAPIKey carries the feed credential.
	HeaderAPIKey = "X-OTX-API-KEY"

	subscribedPath = "/api/v1/pulses/subscribed"
	userMePath     = "/api/v1/user/me"
)

// Ensure Client implements the port.
var _ driven.FeedClient = (*Client)(nil)

// ClientConfig configures a feed client. Zero values fall back to the
// package defaults.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	PageLimit  int
	MaxPages   int // 0 means no bound
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Client wraps the feed's REST API.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	pageLimit   int
	maxPages    int
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a feed client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = RetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: NewRateLimiter(),
		pageLimit:   cfg.PageLimit,
		maxPages:    cfg.MaxPages,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
	}
}

// Validate checks the API key with a lightweight call.
func (c *Client) Validate(ctx context.Context) error {
	var out struct {
		Username string `json:"username"`
	}
	return c.getJSON(ctx, c.baseURL+userMePath, &out)
}

// Pulses returns a fresh iterator over pulses modified since the given
// timestamp. Each call restarts pagination from the beginning.
func (c *Client) Pulses(since time.Time) driven.PulseIterator {
	first := fmt.Sprintf("%s%s?limit=%d&modified_since=%s",
		c.baseURL, subscribedPath, c.pageLimit,
		url.QueryEscape(since.UTC().Format(time.RFC3339)))
	return &pager{client: c, next: first}
}

// RateLimiter returns the rate limiter for external inspection.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// getJSON performs a GET with retry and exponential backoff.
// Authentication failures map to domain.ErrAuth and are never retried;
// a spent retry budget maps to domain.ErrFeedUnavailable.
func (c *Client) getJSON(ctx context.Context, rawURL string, into any) error {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("otx: retrying %s in %s (attempt %d/%d): %v",
				rawURL, delay, attempt, c.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		err := c.doOnce(ctx, rawURL, into)
		if err == nil {
			return nil
		}
		if IsUnauthorized(err) {
			return fmt.Errorf("%w: %v", domain.ErrAuth, err)
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, lastErr)
}

// doOnce performs a single request attempt.
func (c *Client) doOnce(ctx context.Context, rawURL string, into any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if rlErr := c.rateLimiter.CheckRateLimit(resp); rlErr != nil {
		return rlErr
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			URL:        rawURL,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
