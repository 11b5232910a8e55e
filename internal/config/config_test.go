package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HELIUS_API_KEY", "indexer-key")
	t.Setenv("BIRDEYE_API_KEY", "oracle-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.helius.xyz", cfg.IndexerBaseURL)
	assert.Equal(t, "indexer-key", cfg.IndexerAPIKey)
	assert.Equal(t, 8.0, cfg.IndexerRPS)
	assert.Equal(t, 100, cfg.PageSize)

	assert.Equal(t, "https://public-api.birdeye.so", cfg.OracleBaseURL)
	assert.Equal(t, "oracle-key", cfg.OracleAPIKey)
	assert.Equal(t, 12.0, cfg.OracleRPS)
	assert.Equal(t, 4, cfg.PriceWorkers)

	assert.Equal(t, "wss://mainnet.helius-rpc.com", cfg.WSEndpoint)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HELIUS_API_KEY", "k1")
	t.Setenv("BIRDEYE_API_KEY", "k2")
	t.Setenv("INDEXER_BASE_URL", "http://localhost:8080")
	t.Setenv("INDEXER_RPS", "2.5")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("HTTP_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.IndexerBaseURL)
	assert.Equal(t, 2.5, cfg.IndexerRPS)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoad_MissingIndexerKey(t *testing.T) {
	t.Setenv("HELIUS_API_KEY", "")
	t.Setenv("BIRDEYE_API_KEY", "k2")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HELIUS_API_KEY")
}

func TestLoad_MissingOracleKey(t *testing.T) {
	t.Setenv("HELIUS_API_KEY", "k1")
	t.Setenv("BIRDEYE_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BIRDEYE_API_KEY")
}
