// Package main reconstructs a wallet's trade history and writes the
// settled, FIFO-priced leg sequence as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"solana-wallet-pnl/internal/config"
	"solana-wallet-pnl/internal/export"
	"solana-wallet-pnl/internal/indexer"
	"solana-wallet-pnl/internal/ledger"
	"solana-wallet-pnl/internal/metadata"
	"solana-wallet-pnl/internal/observability"
	"solana-wallet-pnl/internal/pipeline"
	"solana-wallet-pnl/internal/pricing"
	"solana-wallet-pnl/internal/ratelimit"
	"solana-wallet-pnl/internal/solana"
)

func main() {
	wallet := flag.String("wallet", "", "Wallet address to analyze")
	out := flag.String("out", "", "Output CSV path (default: stdout)")
	metricsAddr := flag.String("metrics-addr", "", "Optional address to serve /metrics on")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	flag.Parse()

	if *wallet == "" {
		fmt.Fprintln(os.Stderr, "usage: pnl -wallet <address> [-out file.csv]")
		os.Exit(2)
	}

	logger := newLogger(*verbose)
	defer logger.Sync()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling", zap.String("signal", sig.String()))
		cancel()
	}()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if solana.IsValidAddress(*wallet) && !solana.IsOnCurve(*wallet) {
		logger.Warn("address is off-curve; it may be a token account or pool rather than a wallet",
			zap.String("wallet", *wallet))
	}

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Fatal("pipeline setup failed", zap.Error(err))
	}

	result, err := p.Run(ctx, *wallet)
	if err != nil {
		logger.Fatal("pipeline failed", zap.Error(err))
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Fatal("create output file", zap.Error(err))
		}
		defer f.Close()
		w = f
	}

	if err := export.WriteCSV(w, result.Legs); err != nil {
		logger.Fatal("write csv", zap.Error(err))
	}

	logger.Info("done",
		zap.Int("transactions", result.TransactionsFetched),
		zap.Int("legs", len(result.Legs)),
		zap.Int("unpriced", result.LegsUnpriced),
		zap.Int("sells_settled", result.SellsSettled),
		zap.Int("oversells", result.Oversells))
}

func buildPipeline(cfg config.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	indexerClient := indexer.NewClient(cfg.IndexerBaseURL, cfg.IndexerAPIKey,
		indexer.WithTimeout(cfg.HTTPTimeout),
		indexer.WithRateLimiter(ratelimit.New(cfg.IndexerRPS)))

	paginator := indexer.NewPaginator(indexer.PaginatorOptions{
		Client:   indexerClient,
		PageSize: cfg.PageSize,
		Logger:   logger,
	})

	resolver := metadata.NewResolver(
		metadata.NewHTTPAPI(cfg.IndexerBaseURL, cfg.IndexerAPIKey), logger)

	oracle := pricing.NewHTTPOracle(cfg.OracleBaseURL, cfg.OracleAPIKey,
		pricing.WithOracleRateLimiter(ratelimit.New(cfg.OracleRPS)))

	enricher := pricing.NewEnricher(pricing.EnricherOptions{
		Oracle:  oracle,
		Workers: cfg.PriceWorkers,
		Logger:  logger,
	})

	return pipeline.New(pipeline.Options{
		Paginator: paginator,
		Resolver:  resolver,
		Enricher:  enricher,
		Ledger:    ledger.New(ledger.Options{Logger: logger}),
		Logger:    logger,
	})
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
