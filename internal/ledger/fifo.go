package ledger

import (
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-wallet-pnl/internal/domain"
	"solana-wallet-pnl/internal/observability"
)

// DefaultWorkers bounds how many tokens are settled concurrently. Lot
// queues are fully independent across tokens.
const DefaultWorkers = 4

// lot is an unconsumed quantity of a token purchased at a specific unit
// cost, held in FIFO order.
type lot struct {
	remaining decimal.Decimal
	unitCost  decimal.Decimal
}

// Stats summarizes one settlement pass.
type Stats struct {
	Tokens       int
	LotsCreated  int
	SellsSettled int
	Oversells    int // sells that exhausted the lot queue
	Unpriced     int // legs skipped by cost-basis math
}

// Ledger settles legs into realized P&L.
type Ledger struct {
	workers int
	logger  *zap.Logger
}

// Options contains configuration for creating a Ledger.
type Options struct {
	Workers int
	Logger  *zap.Logger
}

// New creates a new Ledger.
func New(opts Options) *Ledger {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{workers: workers, logger: logger}
}

// Settle consumes buy legs into per-token FIFO lot queues and matches
// sell legs against them, setting RealizedPnLUSD on each priced sell.
// Unpriced legs never touch a lot queue and keep RealizedPnLUSD nil.
//
// The returned slice contains every input leg, globally re-sorted by
// (timestamp, hop, leg) for deterministic downstream consumption.
func (l *Ledger) Settle(legs []domain.Leg) ([]domain.Leg, *Stats) {
	byToken := map[string][]domain.Leg{}
	for i := range legs {
		byToken[legs[i].Mint] = append(byToken[legs[i].Mint], legs[i])
	}

	stats := &Stats{Tokens: len(byToken)}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, l.workers)
		result = make([]domain.Leg, 0, len(legs))
	)

	for mint, tokenLegs := range byToken {
		wg.Add(1)
		sem <- struct{}{}
		go func(mint string, tokenLegs []domain.Leg) {
			defer wg.Done()
			defer func() { <-sem }()

			tokenStats := l.settleToken(mint, tokenLegs)

			mu.Lock()
			result = append(result, tokenLegs...)
			stats.LotsCreated += tokenStats.LotsCreated
			stats.SellsSettled += tokenStats.SellsSettled
			stats.Oversells += tokenStats.Oversells
			stats.Unpriced += tokenStats.Unpriced
			mu.Unlock()
		}(mint, tokenLegs)
	}
	wg.Wait()

	SortLegs(result)

	observability.RecordSettlement(stats.LotsCreated, stats.SellsSettled, stats.Oversells)
	return result, stats
}

// settleToken runs the FIFO pass for a single token's legs, in place.
func (l *Ledger) settleToken(mint string, legs []domain.Leg) Stats {
	SortLegs(legs)

	var (
		stats        Stats
		queue        []lot
		oversellSeen bool
	)

	for i := range legs {
		leg := &legs[i]

		if !leg.Priced {
			stats.Unpriced++
			continue
		}

		switch leg.Action {
		case domain.ActionBuy:
			queue = append(queue, lot{remaining: leg.Amount, unitCost: leg.PriceUSD})
			stats.LotsCreated++

		case domain.ActionSell:
			costBasis, unmatched := consume(&queue, leg.Amount)
			if unmatched.IsPositive() {
				stats.Oversells++
				if !oversellSeen {
					oversellSeen = true
					l.logger.Warn("sell exceeds tracked lots, unmatched remainder counted at zero cost basis",
						zap.String("mint", mint),
						zap.String("signature", leg.Signature),
						zap.String("unmatched", unmatched.String()))
				}
			}
			pnl := leg.ValueUSD.Sub(costBasis)
			leg.RealizedPnLUSD = &pnl
			stats.SellsSettled++
		}
	}

	return stats
}

// consume pops lots from the front of the queue until the sell amount is
// satisfied, returning the cost basis consumed and any unmatched
// remainder. A partially consumed lot is split: the consumed part
// contributes to the cost basis and a smaller residual lot stays at the
// front. An exhausted queue is not an error: the remainder is treated as
// zero cost basis (missing earlier buy data counts as pure proceeds).
func consume(queue *[]lot, amount decimal.Decimal) (costBasis, unmatched decimal.Decimal) {
	remaining := amount

	for remaining.IsPositive() && len(*queue) > 0 {
		front := &(*queue)[0]
		if front.remaining.LessThanOrEqual(remaining) {
			costBasis = costBasis.Add(front.remaining.Mul(front.unitCost))
			remaining = remaining.Sub(front.remaining)
			*queue = (*queue)[1:]
		} else {
			costBasis = costBasis.Add(remaining.Mul(front.unitCost))
			front.remaining = front.remaining.Sub(remaining)
			remaining = decimal.Zero
		}
	}

	return costBasis, remaining
}
