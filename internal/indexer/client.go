// Package indexer fetches a wallet's swap transactions from the
// enhanced-transactions indexer API.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"solana-wallet-pnl/internal/ratelimit"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// DefaultRetryAfter is used when a 429 response carries no hint.
	DefaultRetryAfter = 5 * time.Second

	// MaxPageSize is the indexer's per-request transaction cap.
	MaxPageSize = 100
)

// RateLimitError is returned when the indexer responds 429. The caller is
// expected to sleep RetryAfter and reissue the same request.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (429), retry after %s", e.RetryAfter)
}

// Client is an HTTP client for the transaction indexer.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	limiter     *ratelimit.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithRateLimiter sets the outbound request rate limiter.
func WithRateLimiter(l *ratelimit.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a new indexer API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     ratelimit.New(ratelimit.DefaultRPS),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transactions fetches one page of swap transactions for a wallet. The
// before cursor, when non-empty, restricts results to transactions older
// than that signature. Returns *RateLimitError on 429 without retrying;
// transient transport and 5xx failures are retried with backoff.
func (c *Client) Transactions(ctx context.Context, wallet, before string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions", c.baseURL, wallet)

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("type", "SWAP")
	params.Set("limit", strconv.Itoa(limit))
	if before != "" {
		params.Set("before", before)
	}

	var txns []Transaction
	if err := c.get(ctx, endpoint+"?"+params.Encode(), &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

// TransactionsBySignature fetches parsed transactions for specific
// signatures. Used by the live-follow mode.
func (c *Client) TransactionsBySignature(ctx context.Context, signatures []string) ([]Transaction, error) {
	if len(signatures) == 0 {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/v0/transactions?api-key=%s", c.baseURL, url.QueryEscape(c.apiKey))

	body, err := json.Marshal(map[string][]string{"transactions": signatures})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	var txns []Transaction
	if err := c.do(ctx, http.MethodPost, endpoint, body, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

func (c *Client) get(ctx context.Context, fullURL string, result interface{}) error {
	return c.do(ctx, http.MethodGet, fullURL, nil, result)
}

// do performs an HTTP request with retries and exponential backoff. 429
// responses are surfaced immediately as *RateLimitError: backing off for
// the server-provided interval is the caller's job.
func (c *Client) do(ctx context.Context, method, fullURL string, body []byte, result interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			reader = strings.NewReader(string(body))
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return errors.Wrap(err, "create request")
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, "http request")
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = errors.Wrap(err, "read response")
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
		}

		if resp.StatusCode >= 500 {
			lastErr = errors.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried.
			return errors.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return errors.Wrap(err, "unmarshal response")
			}
		}

		return nil
	}

	return errors.Wrap(lastErr, "max retries exceeded")
}

// parseRetryAfter reads a Retry-After header value in seconds, falling
// back to DefaultRetryAfter when absent or malformed.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return DefaultRetryAfter
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
