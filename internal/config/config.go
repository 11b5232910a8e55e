// Package config loads runtime configuration from the environment.
// Missing API credentials are the one fatal startup condition: they are
// surfaced immediately, before any pipeline work begins.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/pkg/errors"
)

// Config holds all runtime settings.
type Config struct {
	// Transaction indexer (enhanced-transactions API).
	IndexerBaseURL string  `env:"INDEXER_BASE_URL" envDefault:"https://api.helius.xyz"`
	IndexerAPIKey  string  `env:"HELIUS_API_KEY,required,notEmpty"`
	IndexerRPS     float64 `env:"INDEXER_RPS" envDefault:"8"`
	PageSize       int     `env:"PAGE_SIZE" envDefault:"100"`

	// Price oracle.
	OracleBaseURL string  `env:"ORACLE_BASE_URL" envDefault:"https://public-api.birdeye.so"`
	OracleAPIKey  string  `env:"BIRDEYE_API_KEY,required,notEmpty"`
	OracleRPS     float64 `env:"ORACLE_RPS" envDefault:"12"`
	PriceWorkers  int     `env:"PRICE_WORKERS" envDefault:"4"`

	// Live-follow mode.
	WSEndpoint string `env:"WS_ENDPOINT" envDefault:"wss://mainnet.helius-rpc.com"`

	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}
