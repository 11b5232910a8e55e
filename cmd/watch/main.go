// Package main follows a wallet live: new swap transactions stream in
// over a log subscription and are settled against the full history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"solana-wallet-pnl/internal/config"
	"solana-wallet-pnl/internal/domain"
	"solana-wallet-pnl/internal/extract"
	"solana-wallet-pnl/internal/indexer"
	"solana-wallet-pnl/internal/ledger"
	"solana-wallet-pnl/internal/metadata"
	"solana-wallet-pnl/internal/pipeline"
	"solana-wallet-pnl/internal/pricing"
	"solana-wallet-pnl/internal/ratelimit"
	"solana-wallet-pnl/internal/solana"
	"solana-wallet-pnl/internal/stream"
)

func main() {
	wallet := flag.String("wallet", "", "Wallet address to follow")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	flag.Parse()

	if *wallet == "" {
		fmt.Fprintln(os.Stderr, "usage: watch -wallet <address>")
		os.Exit(2)
	}

	logger := newLogger(*verbose)
	defer logger.Sync()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	if solana.IsValidAddress(*wallet) && !solana.IsOnCurve(*wallet) {
		logger.Warn("address is off-curve; it may be a token account or pool rather than a wallet",
			zap.String("wallet", *wallet))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	indexerClient := indexer.NewClient(cfg.IndexerBaseURL, cfg.IndexerAPIKey,
		indexer.WithTimeout(cfg.HTTPTimeout),
		indexer.WithRateLimiter(ratelimit.New(cfg.IndexerRPS)))

	resolver := metadata.NewResolver(
		metadata.NewHTTPAPI(cfg.IndexerBaseURL, cfg.IndexerAPIKey), logger)

	oracle := pricing.NewHTTPOracle(cfg.OracleBaseURL, cfg.OracleAPIKey,
		pricing.WithOracleRateLimiter(ratelimit.New(cfg.OracleRPS)))

	// One long-lived price cache across the session: historical prices
	// are immutable, so every re-settlement reuses earlier lookups.
	enricher := pricing.NewEnricher(pricing.EnricherOptions{
		Oracle:  oracle,
		Cache:   pricing.NewCache(),
		Workers: cfg.PriceWorkers,
		Logger:  logger,
	})

	// Seed with the wallet's existing history so live sells match
	// against their historical buy lots.
	p, err := pipeline.New(pipeline.Options{
		Paginator: indexer.NewPaginator(indexer.PaginatorOptions{
			Client:   indexerClient,
			PageSize: cfg.PageSize,
			Logger:   logger,
		}),
		Resolver: resolver,
		Enricher: enricher,
		Ledger:   ledger.New(ledger.Options{Logger: logger}),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("pipeline setup failed", zap.Error(err))
	}

	seed, err := p.Run(ctx, *wallet)
	if err != nil {
		logger.Fatal("history seed failed", zap.Error(err))
	}
	logger.Info("history seeded",
		zap.Int("legs", len(seed.Legs)),
		zap.Int("sells_settled", seed.SellsSettled))

	tailer, err := stream.NewTailer(ctx, cfg.WSEndpoint, *wallet, nil, logger)
	if err != nil {
		logger.Fatal("subscribe failed", zap.Error(err))
	}
	defer tailer.Close()

	extractor := extract.New(extract.Options{Wallet: *wallet, Logger: logger})
	led := ledger.New(ledger.Options{Logger: logger})
	legs := stripSettlement(seed.Legs)

	logger.Info("following wallet", zap.String("wallet", *wallet))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-tailer.Events():
			if !ok {
				return
			}
			if event.Failed || !solana.IsValidSignature(event.Signature) {
				continue
			}

			txs, err := indexerClient.TransactionsBySignature(ctx, []string{event.Signature})
			if err != nil {
				logger.Warn("fetch streamed transaction failed",
					zap.String("signature", event.Signature), zap.Error(err))
				continue
			}

			var fresh []domain.Leg
			for i := range txs {
				fresh = append(fresh, extractor.Extract(&txs[i])...)
			}
			if len(fresh) == 0 {
				continue
			}

			resolver.Apply(ctx, fresh)
			legs = append(legs, fresh...)

			// Re-settle the full sequence; the price cache makes this a
			// pure in-memory pass for everything already seen.
			if err := enricher.Enrich(ctx, legs); err != nil {
				return
			}
			settled, stats := led.Settle(legs)
			legs = stripSettlement(settled)

			for i := range fresh {
				reportLeg(logger, settled, fresh[i].Signature)
			}
			logger.Info("resettled",
				zap.Int("legs", len(settled)),
				zap.Int("sells_settled", stats.SellsSettled),
				zap.Int("oversells", stats.Oversells))
		}
	}
}

// stripSettlement clears per-run settlement output so legs can be fed
// through the ledger again without stale P&L.
func stripSettlement(legs []domain.Leg) []domain.Leg {
	out := make([]domain.Leg, len(legs))
	copy(out, legs)
	for i := range out {
		out[i].RealizedPnLUSD = nil
	}
	return out
}

// reportLeg logs the settled view of every leg from one transaction.
func reportLeg(logger *zap.Logger, settled []domain.Leg, signature string) {
	for i := range settled {
		if settled[i].Signature != signature {
			continue
		}
		fields := []zap.Field{
			zap.String("signature", settled[i].Signature),
			zap.String("action", settled[i].Action.String()),
			zap.String("symbol", settled[i].Symbol),
			zap.String("amount", settled[i].Amount.String()),
			zap.Bool("priced", settled[i].Priced),
		}
		if settled[i].RealizedPnLUSD != nil {
			fields = append(fields, zap.String("realized_pnl_usd", settled[i].RealizedPnLUSD.String()))
		}
		logger.Info("leg", fields...)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	return logger
}
