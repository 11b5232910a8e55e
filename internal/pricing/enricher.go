package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-wallet-pnl/internal/domain"
	"solana-wallet-pnl/internal/observability"
)

// DefaultWorkers bounds concurrent price-bucket lookups.
const DefaultWorkers = 4

// Default fee rates. A native-denominated leg is charged the full venue
// round-trip rate; a synthetic leg from an asset-to-asset decomposition
// is charged half, since only half the round trip is attributed to it.
var (
	DefaultNativeFeeRate    = decimal.NewFromFloat(0.003)
	DefaultSyntheticFeeRate = decimal.NewFromFloat(0.0015)
)

var one = decimal.NewFromInt(1)

// Enricher annotates legs with USD price, value and fee estimates, or
// marks them unpriced. Absence of a price is a first-class state, not an
// error: no leg is ever dropped for lack of one.
type Enricher struct {
	oracle           Oracle
	cache            *Cache
	workers          int
	nativeFeeRate    decimal.Decimal
	syntheticFeeRate decimal.Decimal
	logger           *zap.Logger
}

// EnricherOptions contains configuration for creating an Enricher.
type EnricherOptions struct {
	Oracle           Oracle
	Cache            *Cache // optional; a fresh run-scoped cache when nil
	Workers          int
	NativeFeeRate    decimal.Decimal
	SyntheticFeeRate decimal.Decimal
	Logger           *zap.Logger
}

// NewEnricher creates a new Enricher.
func NewEnricher(opts EnricherOptions) *Enricher {
	cache := opts.Cache
	if cache == nil {
		cache = NewCache()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	nativeRate := opts.NativeFeeRate
	if nativeRate.IsZero() {
		nativeRate = DefaultNativeFeeRate
	}

	synthRate := opts.SyntheticFeeRate
	if synthRate.IsZero() {
		synthRate = DefaultSyntheticFeeRate
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Enricher{
		oracle:           opts.Oracle,
		cache:            cache,
		workers:          workers,
		nativeFeeRate:    nativeRate,
		syntheticFeeRate: synthRate,
		logger:           logger,
	}
}

// Enrich annotates every leg in place. Price lookups are batched per
// minute bucket and run with bounded parallelism across buckets; failures
// leave the affected legs with Priced=false. The only error returned is
// the context's, in which case no leg has been partially annotated.
func (e *Enricher) Enrich(ctx context.Context, legs []domain.Leg) error {
	if err := e.warmCache(ctx, legs); err != nil {
		return err
	}

	for i := range legs {
		e.priceLeg(&legs[i])
	}
	return nil
}

// warmCache fetches every (asset, minute) pair referenced by the legs
// that is not already cached. Stablecoins short-circuit to a fixed 1.0
// without a network call.
func (e *Enricher) warmCache(ctx context.Context, legs []domain.Leg) error {
	needed := map[Key]bool{}
	for i := range legs {
		minute := legs[i].MinuteBucket()
		for _, mint := range legAssets(&legs[i]) {
			needed[Key{Mint: mint, Minute: minute}] = true
		}
	}

	var misses []Key
	for key := range needed {
		if domain.IsStablecoin(key.Mint) {
			e.cache.Put(key.Mint, key.Minute, one)
			continue
		}
		if _, ok := e.cache.Get(key.Mint, key.Minute); ok {
			observability.RecordPriceCacheHit()
			continue
		}
		observability.RecordPriceCacheMiss()
		misses = append(misses, key)
	}

	if len(misses) == 0 {
		return nil
	}

	// Lookups are independent across (asset, minute) pairs; run them with
	// bounded parallelism. The oracle client is rate limited internally.
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for _, key := range misses {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(key Key) {
			defer wg.Done()
			defer func() { <-sem }()

			price, err := e.oracle.HistoricalPrice(ctx, key.Mint, key.Minute)
			if err != nil {
				observability.RecordPriceLookupError()
				e.logger.Debug("price lookup failed",
					zap.String("mint", key.Mint),
					zap.Int64("minute", key.Minute),
					zap.Error(err))
				return
			}
			e.cache.Put(key.Mint, key.Minute, price)
		}(key)
	}

	wg.Wait()
	return ctx.Err()
}

// priceLeg computes the leg's pricing fields from cached prices.
func (e *Enricher) priceLeg(leg *domain.Leg) {
	minute := leg.MinuteBucket()

	if leg.NativeDenominated() {
		nativePrice, ok := e.cache.Get(domain.WSOLMint, minute)
		if !ok {
			e.markUnpriced(leg)
			return
		}
		leg.ValueUSD = leg.NativeAmount.Mul(nativePrice)
		leg.PriceUSD = safeDiv(leg.ValueUSD, leg.Amount)
		leg.FeesUSD = leg.ValueUSD.Mul(e.nativeFeeRate)
		leg.Priced = true
		return
	}

	// Asset-to-asset leg: price from whichever side resolved, preferring
	// the sell side of the swap. For a sell leg that is the subject
	// asset; for a buy leg it is the counter asset that was given up.
	subjectPrice, subjectOK := e.cache.Get(leg.Mint, minute)
	counterPrice, counterOK := decimal.Zero, false
	if leg.CounterMint != "" {
		counterPrice, counterOK = e.cache.Get(leg.CounterMint, minute)
	}

	preferSubject := leg.Action == domain.ActionSell

	var value decimal.Decimal
	switch {
	case preferSubject && subjectOK:
		value = leg.Amount.Mul(subjectPrice)
	case counterOK:
		value = leg.CounterAmount.Mul(counterPrice)
	case subjectOK:
		value = leg.Amount.Mul(subjectPrice)
	default:
		e.markUnpriced(leg)
		return
	}

	leg.ValueUSD = value
	leg.PriceUSD = safeDiv(value, leg.Amount)
	leg.FeesUSD = value.Mul(e.syntheticFeeRate)
	leg.Priced = true
}

func (e *Enricher) markUnpriced(leg *domain.Leg) {
	leg.PriceUSD = decimal.Zero
	leg.ValueUSD = decimal.Zero
	leg.FeesUSD = decimal.Zero
	leg.Priced = false
	observability.RecordLegUnpriced()
}

// legAssets returns the distinct assets whose prices this leg needs.
func legAssets(leg *domain.Leg) []string {
	assets := []string{leg.Mint}
	if leg.CounterMint != "" {
		assets = append(assets, leg.CounterMint)
	}
	if leg.NativeDenominated() {
		assets = append(assets, domain.WSOLMint)
	}
	return assets
}

func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, 18)
}
