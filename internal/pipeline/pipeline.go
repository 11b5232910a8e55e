// Package pipeline coordinates the full reconstruction flow:
// pagination → leg extraction → metadata resolution → price enrichment →
// FIFO settlement.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"solana-wallet-pnl/internal/domain"
	"solana-wallet-pnl/internal/extract"
	"solana-wallet-pnl/internal/indexer"
	"solana-wallet-pnl/internal/ledger"
	"solana-wallet-pnl/internal/metadata"
	"solana-wallet-pnl/internal/observability"
	"solana-wallet-pnl/internal/pricing"
	"solana-wallet-pnl/internal/solana"
)

// ErrInvalidWallet is returned before any network call when the wallet
// address does not decode to a public key.
var ErrInvalidWallet = errors.New("invalid wallet address")

// Pipeline runs the end-to-end reconstruction for one wallet at a time.
type Pipeline struct {
	paginator *indexer.Paginator
	resolver  *metadata.Resolver
	enricher  *pricing.Enricher
	ledger    *ledger.Ledger
	logger    *zap.Logger
}

// Options contains the pipeline's collaborators.
type Options struct {
	Paginator *indexer.Paginator
	Resolver  *metadata.Resolver
	Enricher  *pricing.Enricher
	Ledger    *ledger.Ledger
	Logger    *zap.Logger
}

// New creates a new Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Paginator == nil {
		return nil, errors.New("paginator is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("metadata resolver is required")
	}
	if opts.Enricher == nil {
		return nil, errors.New("price enricher is required")
	}

	led := opts.Ledger
	if led == nil {
		led = ledger.New(ledger.Options{})
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		paginator: opts.Paginator,
		resolver:  opts.Resolver,
		enricher:  opts.Enricher,
		ledger:    led,
		logger:    logger,
	}, nil
}

// Result contains the settled leg sequence plus run statistics. The run
// is best-effort: degradation shows up in the unpriced counts, never as a
// discarded leg.
type Result struct {
	RunID  string
	Wallet string

	Legs []domain.Leg

	TransactionsFetched int
	LegsExtracted       int
	LegsPriced          int
	LegsUnpriced        int
	SellsSettled        int
	Oversells           int

	Duration time.Duration
}

// Run reconstructs and settles the complete trade history of a wallet.
//
// A cancelled context aborts with an error and no result; any other
// upstream degradation (partial history, missing prices, missing
// metadata) produces a partial result instead of a failure.
func (p *Pipeline) Run(ctx context.Context, wallet string) (*Result, error) {
	start := time.Now()

	if !solana.IsValidAddress(wallet) {
		return nil, errors.Wrap(ErrInvalidWallet, wallet)
	}

	result := &Result{
		RunID:  uuid.NewString(),
		Wallet: wallet,
	}
	logger := p.logger.With(zap.String("run_id", result.RunID), zap.String("wallet", wallet))

	// Phase 1: fetch the wallet's swap history.
	logger.Info("fetching transaction history")
	txs, err := p.paginator.FetchAll(ctx, wallet)
	if err != nil {
		observability.RecordPipelineRun("cancelled", time.Since(start).Seconds())
		return nil, err
	}
	result.TransactionsFetched = len(txs)
	logger.Info("history fetched", zap.Int("transactions", len(txs)))

	// Phase 2: extract normalized legs.
	extractor := extract.New(extract.Options{Wallet: wallet, Logger: logger})
	var legs []domain.Leg
	for i := range txs {
		legs = append(legs, extractor.Extract(&txs[i])...)
	}
	result.LegsExtracted = len(legs)
	logger.Info("legs extracted", zap.Int("legs", len(legs)))

	// Phase 3: resolve token symbols.
	p.resolver.Apply(ctx, legs)

	// Phase 4: price enrichment.
	if err := p.enricher.Enrich(ctx, legs); err != nil {
		observability.RecordPipelineRun("cancelled", time.Since(start).Seconds())
		return nil, err
	}

	// Phase 5: FIFO settlement.
	settled, stats := p.ledger.Settle(legs)
	result.Legs = settled
	result.SellsSettled = stats.SellsSettled
	result.Oversells = stats.Oversells

	for i := range settled {
		if settled[i].Priced {
			result.LegsPriced++
		} else {
			result.LegsUnpriced++
		}
	}

	result.Duration = time.Since(start)
	observability.RecordPipelineRun("ok", result.Duration.Seconds())

	logger.Info("pipeline complete",
		zap.Int("legs", len(result.Legs)),
		zap.Int("priced", result.LegsPriced),
		zap.Int("unpriced", result.LegsUnpriced),
		zap.Int("sells_settled", result.SellsSettled),
		zap.Int("oversells", result.Oversells),
		zap.Duration("duration", result.Duration))

	return result, nil
}
