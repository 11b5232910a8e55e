package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-pnl/internal/ratelimit"
)

func fastOracle(srv *httptest.Server) *HTTPOracle {
	return NewHTTPOracle(srv.URL, "test-key",
		WithOracleMaxRetries(0),
		WithOracleRateLimiter(ratelimit.New(10000)))
}

func historyBody(items ...[2]int64) string {
	type item struct {
		UnixTime int64 `json:"unixTime"`
		Value    int64 `json:"value"`
	}
	var resp struct {
		Data struct {
			Items []item `json:"items"`
		} `json:"data"`
		Success bool `json:"success"`
	}
	for _, it := range items {
		resp.Data.Items = append(resp.Data.Items, item{UnixTime: it[0], Value: it[1]})
	}
	resp.Success = true
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestHistoricalPrice_PicksClosestPoint(t *testing.T) {
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/defi/history_price", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "solana", r.Header.Get("x-chain"))

		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}

		// Points at -50s, -10s and +30s around the target.
		w.Write([]byte(historyBody(
			[2]int64{1699999950, 3},
			[2]int64{1699999990, 7},
			[2]int64{1700000030, 9},
		)))
	}))
	defer srv.Close()

	price, err := fastOracle(srv).HistoricalPrice(context.Background(), "MintA", 1700000000)
	require.NoError(t, err)

	assert.True(t, price.Equal(decimal.NewFromInt(7)), "price = %s, want the point closest to the target", price)
	assert.Equal(t, "MintA", gotQuery["address"])
	assert.Equal(t, "token", gotQuery["address_type"])
	assert.Equal(t, "1m", gotQuery["type"])
	assert.Equal(t, "1699999940", gotQuery["time_from"])
	assert.Equal(t, "1700000060", gotQuery["time_to"])
}

func TestHistoricalPrice_NoItemsIsErrNoPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(historyBody()))
	}))
	defer srv.Close()

	_, err := fastOracle(srv).HistoricalPrice(context.Background(), "MintA", 1700000000)
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestHistoricalPrice_ZeroValueIsErrNoPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(historyBody([2]int64{1700000000, 0})))
	}))
	defer srv.Close()

	_, err := fastOracle(srv).HistoricalPrice(context.Background(), "MintA", 1700000000)
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestHistoricalPrice_ServerErrorExhaustsRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := fastOracle(srv).HistoricalPrice(context.Background(), "MintA", 1700000000)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestCurrentPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/defi/multi_price", r.URL.Path)
		assert.Equal(t, "MintA,MintB,MintC", r.URL.Query().Get("list_address"))

		w.Write([]byte(`{"data":{"MintA":{"value":1.5},"MintB":{"value":0},"MintC":{"value":42}},"success":true}`))
	}))
	defer srv.Close()

	prices, err := fastOracle(srv).CurrentPrices(context.Background(), []string{"MintA", "MintB", "MintC"})
	require.NoError(t, err)

	require.Len(t, prices, 2, "zero-valued entries are omitted")
	assert.True(t, prices["MintA"].Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, prices["MintC"].Equal(decimal.NewFromInt(42)))
}

func TestCurrentPrices_EmptyInput(t *testing.T) {
	o := NewHTTPOracle("http://unused.invalid", "test-key")

	prices, err := o.CurrentPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, prices)
}

func TestParseRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, int64(4), int64(parseRetryAfterSeconds("4").Seconds()))
	assert.Zero(t, parseRetryAfterSeconds(""))
	assert.Zero(t, parseRetryAfterSeconds("later"))
}
