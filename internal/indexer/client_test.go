package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-pnl/internal/ratelimit"
)

// fastClient builds a client pointed at srv with retry delays and rate
// limits that keep tests quick.
func fastClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, "test-key",
		WithRetryDelay(time.Millisecond),
		WithRateLimiter(ratelimit.New(10000)))
}

func TestTransactions_RequestShape(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode([]Transaction{{Signature: "sig1", Slot: 100}})
	}))
	defer srv.Close()

	txns, err := fastClient(srv).Transactions(context.Background(), "Wallet111", "cursorSig", 50)
	require.NoError(t, err)
	require.Len(t, txns, 1)

	assert.Equal(t, "/v0/addresses/Wallet111/transactions", gotPath)
	assert.Equal(t, "test-key", gotQuery["api-key"])
	assert.Equal(t, "SWAP", gotQuery["type"])
	assert.Equal(t, "50", gotQuery["limit"])
	assert.Equal(t, "cursorSig", gotQuery["before"])
	assert.Equal(t, "sig1", txns[0].Signature)
}

func TestTransactions_OmitsEmptyCursorAndClampsLimit(t *testing.T) {
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode([]Transaction{})
	}))
	defer srv.Close()

	_, err := fastClient(srv).Transactions(context.Background(), "Wallet111", "", 5000)
	require.NoError(t, err)

	_, hasBefore := gotQuery["before"]
	assert.False(t, hasBefore, "empty cursor must not be sent")
	assert.Equal(t, "100", gotQuery["limit"])
}

func TestTransactions_RateLimitSurfacedImmediately(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := fastClient(srv).Transactions(context.Background(), "Wallet111", "", 100)
	require.Error(t, err)

	rle, ok := err.(*RateLimitError)
	require.True(t, ok, "expected *RateLimitError, got %T: %v", err, err)
	assert.Equal(t, 7*time.Second, rle.RetryAfter)
	assert.Equal(t, 1, attempts, "429 must not be retried by the client")
}

func TestTransactions_RateLimitDefaultRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := fastClient(srv).Transactions(context.Background(), "Wallet111", "", 100)
	require.Error(t, err)

	rle, ok := err.(*RateLimitError)
	require.True(t, ok)
	assert.Equal(t, DefaultRetryAfter, rle.RetryAfter)
}

func TestTransactions_ServerErrorRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]Transaction{{Signature: "sig1"}})
	}))
	defer srv.Close()

	txns, err := fastClient(srv).Transactions(context.Background(), "Wallet111", "", 100)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, txns, 1)
}

func TestTransactions_ClientErrorNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := fastClient(srv).Transactions(context.Background(), "Wallet111", "", 100)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestTransactions_RetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key",
		WithRetryDelay(time.Millisecond),
		WithMaxRetries(2),
		WithRateLimiter(ratelimit.New(10000)))

	_, err := client.Transactions(context.Background(), "Wallet111", "", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestTransactionsBySignature(t *testing.T) {
	var gotBody map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v0/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode([]Transaction{{Signature: "sigA"}, {Signature: "sigB"}})
	}))
	defer srv.Close()

	txns, err := fastClient(srv).TransactionsBySignature(context.Background(), []string{"sigA", "sigB"})
	require.NoError(t, err)

	assert.Equal(t, []string{"sigA", "sigB"}, gotBody["transactions"])
	assert.Len(t, txns, 2)
}

func TestTransactionsBySignature_EmptyInput(t *testing.T) {
	client := NewClient("http://unused.invalid", "test-key")

	txns, err := client.TransactionsBySignature(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, txns)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 12*time.Second, parseRetryAfter("12"))
	assert.Equal(t, DefaultRetryAfter, parseRetryAfter(""))
	assert.Equal(t, DefaultRetryAfter, parseRetryAfter("soon"))
	assert.Equal(t, DefaultRetryAfter, parseRetryAfter("-3"))
}
