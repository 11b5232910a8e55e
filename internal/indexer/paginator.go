package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-wallet-pnl/internal/observability"
)

// MaxConsecutiveEmptyPages is how many empty pages in a row the paginator
// tolerates before concluding the history is exhausted. The indexer is
// known to return spurious empty pages mid-stream.
const MaxConsecutiveEmptyPages = 3

// Paginator drives cursor-based retrieval of a wallet's complete swap
// transaction history, in the indexer-reported (newest-first) order.
type Paginator struct {
	client   *Client
	pageSize int
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// PaginatorOptions contains configuration for creating a Paginator.
type PaginatorOptions struct {
	Client   *Client
	PageSize int
	Logger   *zap.Logger
}

// NewPaginator creates a new Paginator.
func NewPaginator(opts PaginatorOptions) *Paginator {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Paginator{
		client:   opts.Client,
		pageSize: pageSize,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// FetchAll retrieves the complete swap history for a wallet.
//
// On a 429 the paginator sleeps the server-provided interval and reissues
// the same request without advancing the cursor. On any non-recoverable
// error it logs and returns whatever was collected so far: callers must
// tolerate incomplete history rather than crash, so a partial result is
// not a failure. The error return is reserved for context cancellation.
func (p *Paginator) FetchAll(ctx context.Context, wallet string) ([]Transaction, error) {
	var (
		collected  []Transaction
		before     string
		emptyPages int
	)

	for {
		page, err := p.client.Transactions(ctx, wallet, before, p.pageSize)
		if err != nil {
			if rle, ok := err.(*RateLimitError); ok {
				observability.RecordRateLimitDeferral()
				p.logger.Debug("indexer rate limited, backing off",
					zap.Duration("retry_after", rle.RetryAfter))
				if err := p.sleep(ctx, rle.RetryAfter); err != nil {
					return collected, err
				}
				continue
			}
			if ctx.Err() != nil {
				return collected, ctx.Err()
			}
			observability.RecordFetchError("indexer")
			p.logger.Warn("pagination aborted, returning partial history",
				zap.String("wallet", wallet),
				zap.Int("collected", len(collected)),
				zap.Error(err))
			return collected, nil
		}

		observability.RecordPageFetched(len(page))

		if len(page) == 0 {
			emptyPages++
			if emptyPages >= MaxConsecutiveEmptyPages {
				break
			}
			continue
		}
		emptyPages = 0

		for i := range page {
			if page[i].Failed() {
				continue
			}
			collected = append(collected, page[i])
		}

		// Monotonically advancing cursor: no signature is requested twice.
		// Short pages are not trusted as end-of-data either; only the
		// consecutive-empty-page counter terminates the loop.
		before = page[len(page)-1].Signature
	}

	p.logger.Info("pagination complete",
		zap.String("wallet", wallet),
		zap.Int("transactions", len(collected)))

	return collected, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
