// Package metadata resolves token symbol/decimals for unknown mints, with
// a process-lifetime cache.
package metadata

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"solana-wallet-pnl/internal/domain"
)

// MaxBatchSize is the metadata service's per-request mint cap.
const MaxBatchSize = 100

// API performs batched metadata lookups against the metadata service.
// Unknown mints are tolerated by omission from the result map.
type API interface {
	FetchBatch(ctx context.Context, mints []string) (map[string]domain.TokenMetadata, error)
}

// Resolver batches unknown mints into bounded-size requests and caches
// the results for the process lifetime. Token metadata does not change,
// so the cache is append-only; Reset exists for long-lived processes that
// want an explicit lifecycle.
type Resolver struct {
	api    API
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]domain.TokenMetadata
}

// NewResolver creates a new Resolver.
func NewResolver(api API, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		api:    api,
		logger: logger,
		cache:  make(map[string]domain.TokenMetadata),
	}
}

// Resolve returns metadata for every requested mint. Mints found in the
// well-known static table or the cache never hit the network. On partial
// failure, unresolved mints map to a placeholder symbol derived from the
// truncated mint rather than failing the whole batch.
func (r *Resolver) Resolve(ctx context.Context, mints []string) map[string]domain.TokenMetadata {
	result := make(map[string]domain.TokenMetadata, len(mints))

	var unknown []string
	seen := map[string]bool{}
	for _, mint := range mints {
		if mint == "" || seen[mint] {
			continue
		}
		seen[mint] = true

		if md, ok := domain.KnownToken(mint); ok {
			result[mint] = md
			continue
		}
		if md, ok := r.get(mint); ok {
			result[mint] = md
			continue
		}
		unknown = append(unknown, mint)
	}

	for i := 0; i < len(unknown); i += MaxBatchSize {
		end := i + MaxBatchSize
		if end > len(unknown) {
			end = len(unknown)
		}
		batch := unknown[i:end]

		fetched, err := r.api.FetchBatch(ctx, batch)
		if err != nil {
			r.logger.Warn("metadata batch failed, using placeholders",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			fetched = nil
		}

		for _, mint := range batch {
			md, ok := fetched[mint]
			if !ok {
				md = placeholder(mint)
			}
			r.put(mint, md)
			result[mint] = md
		}
	}

	return result
}

// Apply sets each leg's Symbol from resolved metadata.
func (r *Resolver) Apply(ctx context.Context, legs []domain.Leg) {
	mints := make([]string, 0, len(legs))
	for i := range legs {
		mints = append(mints, legs[i].Mint)
	}

	resolved := r.Resolve(ctx, mints)
	for i := range legs {
		if md, ok := resolved[legs[i].Mint]; ok {
			legs[i].Symbol = md.Symbol
		}
	}
}

// CacheSize returns the number of cached entries.
func (r *Resolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Reset clears the cache.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]domain.TokenMetadata)
}

func (r *Resolver) get(mint string) (domain.TokenMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.cache[mint]
	return md, ok
}

func (r *Resolver) put(mint string, md domain.TokenMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cache[mint]; exists {
		return
	}
	r.cache[mint] = md
}

// placeholder builds metadata for a mint the service could not resolve.
// The symbol is the truncated mint so rows stay readable.
func placeholder(mint string) domain.TokenMetadata {
	symbol := mint
	if len(mint) > 8 {
		symbol = mint[:4] + ".." + mint[len(mint)-4:]
	}
	return domain.TokenMetadata{Mint: mint, Symbol: symbol}
}
