package pricing

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
	"github.com/shopspring/decimal"

	"solana-wallet-pnl/internal/ratelimit"
)

// Oracle supplies historical USD prices for assets.
type Oracle interface {
	// HistoricalPrice returns a representative USD price for the asset
	// within ±HistoryWindow of the target timestamp (Unix seconds).
	HistoricalPrice(ctx context.Context, mint string, ts int64) (decimal.Decimal, error)
}

// ErrNoPrice is returned when the oracle has no price for an asset at the
// requested time.
var ErrNoPrice = errors.New("no price available")

// Default configuration values.
const (
	DefaultOracleTimeout = 20 * time.Second
	DefaultOracleRetries = 2
	DefaultOracleDelay   = 1 * time.Second
	DefaultOracleMaxWait = 8 * time.Second

	// HistoryWindow is the half-width of the time window passed to the
	// history endpoint around the target minute.
	HistoryWindow = 60 * time.Second
)

// HTTPOracle implements Oracle against a price-history HTTP API.
type HTTPOracle struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	limiter    *ratelimit.Limiter
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// OracleOption configures HTTPOracle.
type OracleOption func(*HTTPOracle)

// WithOracleHTTPClient sets a custom http.Client.
func WithOracleHTTPClient(client *http.Client) OracleOption {
	return func(o *HTTPOracle) {
		o.client = client
	}
}

// WithOracleRateLimiter sets the outbound request rate limiter.
func WithOracleRateLimiter(l *ratelimit.Limiter) OracleOption {
	return func(o *HTTPOracle) {
		o.limiter = l
	}
}

// WithOracleMaxRetries sets maximum retry attempts.
func WithOracleMaxRetries(n int) OracleOption {
	return func(o *HTTPOracle) {
		o.maxRetries = n
	}
}

// NewHTTPOracle creates a price oracle client.
func NewHTTPOracle(baseURL, apiKey string, opts ...OracleOption) *HTTPOracle {
	o := &HTTPOracle{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		client:     &http.Client{Timeout: DefaultOracleTimeout},
		limiter:    ratelimit.New(ratelimit.DefaultRPS),
		maxRetries: DefaultOracleRetries,
		retryDelay: DefaultOracleDelay,
		maxDelay:   DefaultOracleMaxWait,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// historyResponse is the wire shape of the history_price endpoint.
type historyResponse struct {
	Data struct {
		Items []struct {
			UnixTime int64           `json:"unixTime"`
			Value    decimal.Decimal `json:"value"`
		} `json:"items"`
	} `json:"data"`
	Success bool `json:"success"`
}

// HistoricalPrice queries the history endpoint for a single asset around
// the target timestamp and returns the price point closest to it.
func (o *HTTPOracle) HistoricalPrice(ctx context.Context, mint string, ts int64) (decimal.Decimal, error) {
	window := int64(HistoryWindow / time.Second)

	params := url.Values{}
	params.Set("address", mint)
	params.Set("address_type", "token")
	params.Set("type", "1m")
	params.Set("time_from", strconv.FormatInt(ts-window, 10))
	params.Set("time_to", strconv.FormatInt(ts+window, 10))

	endpoint := fmt.Sprintf("%s/defi/history_price?%s", o.baseURL, params.Encode())

	var resp historyResponse
	if err := o.get(ctx, endpoint, &resp); err != nil {
		return decimal.Zero, err
	}

	if len(resp.Data.Items) == 0 {
		return decimal.Zero, ErrNoPrice
	}

	best := resp.Data.Items[0]
	for _, item := range resp.Data.Items[1:] {
		if absDiff(item.UnixTime, ts) < absDiff(best.UnixTime, ts) {
			best = item
		}
	}

	if best.Value.IsZero() {
		return decimal.Zero, ErrNoPrice
	}
	return best.Value, nil
}

// multiPriceResponse is the wire shape of the multi_price endpoint.
type multiPriceResponse struct {
	Data map[string]struct {
		Value decimal.Decimal `json:"value"`
	} `json:"data"`
	Success bool `json:"success"`
}

// CurrentPrices returns current USD prices for a comma-separated batch of
// assets in a single call. Assets the oracle does not know are omitted.
func (o *HTTPOracle) CurrentPrices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error) {
	if len(mints) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("list_address", strings.Join(mints, ","))

	endpoint := fmt.Sprintf("%s/defi/multi_price?%s", o.baseURL, params.Encode())

	var resp multiPriceResponse
	if err := o.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(resp.Data))
	for mint, entry := range resp.Data {
		if !entry.Value.IsZero() {
			prices[mint] = entry.Value
		}
	}
	return prices, nil
}

// get performs a rate-limited GET with retries and exponential backoff.
// 429 responses honour the Retry-After hint within the retry budget.
func (o *HTTPOracle) get(ctx context.Context, fullURL string, result interface{}) error {
	delay := o.retryDelay
	var lastErr error

	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > o.maxDelay {
				delay = o.maxDelay
			}
		}

		if err := o.limiter.Acquire(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return errors.Wrap(err, "create request")
		}
		req.Header.Set("X-API-KEY", o.apiKey)
		req.Header.Set("x-chain", "solana")

		resp, err := o.client.Do(req)
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
			if ra := parseRetryAfterSeconds(resp.Header.Get("Retry-After")); ra > delay {
				delay = ra
			}
			lastErr = errors.New("rate limited (429)")
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = errors.Errorf("server error %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return errors.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return errors.Wrap(err, "unmarshal response")
		}
		return nil
	}

	return errors.Wrap(lastErr, "max retries exceeded")
}

func parseRetryAfterSeconds(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
