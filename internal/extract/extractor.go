// Package extract converts raw indexer transactions into normalized trade
// legs. Extraction is pure: no I/O, no shared state beyond the bounded
// drop-warning counter.
package extract

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-wallet-pnl/internal/domain"
	"solana-wallet-pnl/internal/indexer"
	"solana-wallet-pnl/internal/observability"
)

// Strategy names, used for metrics and logging.
const (
	StrategyInnerSwaps = "inner_swaps"
	StrategySwapEvent  = "swap_event"
	StrategyBalances   = "balance_changes"
)

// DefaultMaxDropWarnings caps the number of unparseable-transaction
// warnings logged per extractor lifetime, to avoid unbounded logging
// under pathological inputs.
const DefaultMaxDropWarnings = 25

// defaultDustThreshold treats amounts at or below one raw base unit of a
// 9-decimal token as effectively zero.
var defaultDustThreshold = decimal.New(1, -9)

// Extractor turns one raw transaction into zero or more legs for a
// specific wallet.
type Extractor struct {
	wallet          string
	dust            decimal.Decimal
	maxDropWarnings int
	dropWarnings    int
	logger          *zap.Logger
}

// Options contains configuration for creating an Extractor.
type Options struct {
	Wallet          string
	DustThreshold   decimal.Decimal // zero means default
	MaxDropWarnings int             // zero means default
	Logger          *zap.Logger
}

// New creates a new Extractor for a wallet.
func New(opts Options) *Extractor {
	dust := opts.DustThreshold
	if dust.IsZero() {
		dust = defaultDustThreshold
	}

	maxWarn := opts.MaxDropWarnings
	if maxWarn <= 0 {
		maxWarn = DefaultMaxDropWarnings
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		wallet:          opts.Wallet,
		dust:            dust,
		maxDropWarnings: maxWarn,
		logger:          logger,
	}
}

// Extract converts a transaction into normalized legs. Strategies are
// tried in a fixed priority order; the first one that yields at least one
// leg wins:
//
//  1. explicit swap event, per-hop when inner swaps are present
//  2. balance-change heuristic over raw transfers
//
// If no strategy matches, the transaction is dropped with a bounded
// warning.
func (e *Extractor) Extract(tx *indexer.Transaction) []domain.Leg {
	if tx == nil || tx.Failed() {
		return nil
	}

	if legs := e.fromSwapEvent(tx); len(legs) > 0 {
		return legs
	}

	if legs := e.fromBalanceChanges(tx); len(legs) > 0 {
		observability.RecordLegsExtracted(StrategyBalances, len(legs))
		return legs
	}

	e.recordDrop(tx)
	return nil
}

// fromSwapEvent extracts legs from the transaction's explicit swap event.
func (e *Extractor) fromSwapEvent(tx *indexer.Transaction) []domain.Leg {
	swap := tx.Events.Swap
	if swap == nil {
		return nil
	}

	if len(swap.InnerSwaps) > 0 {
		var legs []domain.Leg
		for hop, inner := range swap.InnerSwaps {
			legs = append(legs, e.fromInnerSwap(tx, hop, &inner)...)
		}
		if len(legs) > 0 {
			observability.RecordLegsExtracted(StrategyInnerSwaps, len(legs))
			return legs
		}
	}

	var (
		nativeIn  = lamportsFromString(swap.NativeInput)
		nativeOut = lamportsFromString(swap.NativeOutput)
		tokenIns  = e.sumSwapTokens(swap.TokenInputs)
		tokenOuts = e.sumSwapTokens(swap.TokenOutputs)
	)

	legs := e.classifySides(tx, 0, nativeIn, nativeOut, tokenIns, tokenOuts)
	if len(legs) > 0 {
		observability.RecordLegsExtracted(StrategySwapEvent, len(legs))
	}
	return legs
}

// fromInnerSwap emits the buy/sell legs for a single hop of a multi-hop
// swap, tagged with the hop index.
func (e *Extractor) fromInnerSwap(tx *indexer.Transaction, hop int, inner *indexer.InnerSwap) []domain.Leg {
	var nativeIn, nativeOut decimal.Decimal
	if inner.NativeInput != nil {
		nativeIn = lamportsInt(inner.NativeInput.Amount)
	}
	if inner.NativeOutput != nil {
		nativeOut = lamportsInt(inner.NativeOutput.Amount)
	}

	tokenIns := e.sumTokenTransfers(inner.TokenInputs)
	tokenOuts := e.sumTokenTransfers(inner.TokenOutputs)

	venue := tx.Source
	if inner.ProgramInfo != nil && inner.ProgramInfo.Source != "" {
		venue = inner.ProgramInfo.Source
	}

	legs := e.classifySides(tx, hop, nativeIn, nativeOut, tokenIns, tokenOuts)
	for i := range legs {
		legs[i].Venue = venue
	}
	return legs
}

// fromBalanceChanges applies the balance-change heuristic: group raw
// transfers by direction relative to the wallet and by mint, then
// classify.
func (e *Extractor) fromBalanceChanges(tx *indexer.Transaction) []domain.Leg {
	var nativeIn, nativeOut decimal.Decimal
	for _, nt := range tx.NativeTransfers {
		switch {
		case nt.FromUserAccount == e.wallet:
			nativeOut = nativeOut.Add(lamportsInt(nt.Amount))
		case nt.ToUserAccount == e.wallet:
			nativeIn = nativeIn.Add(lamportsInt(nt.Amount))
		}
	}

	assetOut := map[string]decimal.Decimal{}
	assetIn := map[string]decimal.Decimal{}
	for _, tt := range tx.TokenTransfers {
		if tt.Mint == "" || tt.Mint == domain.WSOLMint {
			// Wrapped SOL moves count as native.
			if tt.FromUserAccount == e.wallet {
				nativeOut = nativeOut.Add(tt.TokenAmount)
			} else if tt.ToUserAccount == e.wallet {
				nativeIn = nativeIn.Add(tt.TokenAmount)
			}
			continue
		}
		switch {
		case tt.FromUserAccount == e.wallet:
			assetOut[tt.Mint] = assetOut[tt.Mint].Add(tt.TokenAmount)
		case tt.ToUserAccount == e.wallet:
			assetIn[tt.Mint] = assetIn[tt.Mint].Add(tt.TokenAmount)
		}
	}

	return e.classifySides(tx, 0, nativeOut, nativeIn, assetOut, assetIn)
}

// classifySides turns one hop's aggregated flows into legs.
//
// nativeSpent is the native amount leaving the wallet (swap input side),
// nativeReceived the native amount arriving. assetsSpent/assetsReceived
// are per-mint token amounts given up and received.
//
//   - nativeReceived + assetsSpent  → sell legs (native received for an asset)
//   - nativeSpent + assetsReceived  → buy legs
//   - assetsSpent + assetsReceived, no native → synthetic sell+buy pair,
//     cross-referencing each other's mint/amount as the counter side
//
// Fan-out: one leg per mint, same hop index, unique leg index. Mints are
// visited in sorted order so leg indices are deterministic.
func (e *Extractor) classifySides(
	tx *indexer.Transaction,
	hop int,
	nativeSpent, nativeReceived decimal.Decimal,
	assetsSpent, assetsReceived map[string]decimal.Decimal,
) []domain.Leg {
	// Wrapped SOL on either side counts as native.
	if amt, ok := assetsSpent[domain.WSOLMint]; ok {
		nativeSpent = nativeSpent.Add(amt)
	}
	if amt, ok := assetsReceived[domain.WSOLMint]; ok {
		nativeReceived = nativeReceived.Add(amt)
	}

	spentMints := e.sortedMints(assetsSpent)
	receivedMints := e.sortedMints(assetsReceived)

	hasNativeIn := nativeSpent.GreaterThan(e.dust)
	hasNativeOut := nativeReceived.GreaterThan(e.dust)

	var legs []domain.Leg
	legIdx := 0

	add := func(action domain.Action, mint string, amount decimal.Decimal) *domain.Leg {
		legs = append(legs, domain.Leg{
			Signature: tx.Signature,
			Slot:      tx.Slot,
			Timestamp: tx.Timestamp,
			HopIndex:  hop,
			LegIndex:  legIdx,
			Action:    action,
			Venue:     tx.Source,
			Mint:      mint,
			Amount:    amount,
		})
		legIdx++
		return &legs[len(legs)-1]
	}

	switch {
	case hasNativeOut && len(spentMints) > 0:
		// Native received for assets given up: sells.
		share := splitEvenly(nativeReceived, len(spentMints))
		for _, mint := range spentMints {
			leg := add(domain.ActionSell, mint, assetsSpent[mint])
			leg.NativeAmount = share
		}
		if hasNativeIn && len(receivedMints) > 0 {
			// The same transaction also spent native for assets: buys too.
			share := splitEvenly(nativeSpent, len(receivedMints))
			for _, mint := range receivedMints {
				leg := add(domain.ActionBuy, mint, assetsReceived[mint])
				leg.NativeAmount = share
			}
		}

	case hasNativeIn && len(receivedMints) > 0:
		// Native spent for assets received: buys.
		share := splitEvenly(nativeSpent, len(receivedMints))
		for _, mint := range receivedMints {
			leg := add(domain.ActionBuy, mint, assetsReceived[mint])
			leg.NativeAmount = share
		}

	case len(spentMints) > 0 && len(receivedMints) > 0:
		// Asset-to-asset swap with no native side: synthetic
		// decomposition into a sell and a buy that reference each other.
		counterIn := receivedMints[0]
		counterOut := spentMints[0]
		for _, mint := range spentMints {
			leg := add(domain.ActionSell, mint, assetsSpent[mint])
			leg.CounterMint = counterIn
			leg.CounterAmount = assetsReceived[counterIn]
		}
		for _, mint := range receivedMints {
			leg := add(domain.ActionBuy, mint, assetsReceived[mint])
			leg.CounterMint = counterOut
			leg.CounterAmount = assetsSpent[counterOut]
		}
	}

	return legs
}

// sumSwapTokens aggregates swap-event token sides per mint, dropping dust.
func (e *Extractor) sumSwapTokens(tokens []indexer.SwapToken) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, t := range tokens {
		amount := t.RawTokenAmount.Decimal()
		if amount.LessThanOrEqual(e.dust) {
			observability.RecordDustSkipped()
			continue
		}
		out[t.Mint] = out[t.Mint].Add(amount)
	}
	return out
}

// sumTokenTransfers aggregates token transfers per mint, dropping dust.
func (e *Extractor) sumTokenTransfers(transfers []indexer.TokenTransfer) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, t := range transfers {
		if t.TokenAmount.LessThanOrEqual(e.dust) {
			observability.RecordDustSkipped()
			continue
		}
		out[t.Mint] = out[t.Mint].Add(t.TokenAmount)
	}
	return out
}

// sortedMints returns the map keys in sorted order, dropping dust totals
// and wrapped SOL (handled as native by callers).
func (e *Extractor) sortedMints(m map[string]decimal.Decimal) []string {
	mints := make([]string, 0, len(m))
	for mint, amount := range m {
		if mint == domain.WSOLMint || amount.LessThanOrEqual(e.dust) {
			continue
		}
		mints = append(mints, mint)
	}
	sort.Strings(mints)
	return mints
}

func (e *Extractor) recordDrop(tx *indexer.Transaction) {
	observability.RecordTransactionDropped()
	if e.dropWarnings >= e.maxDropWarnings {
		return
	}
	e.dropWarnings++
	e.logger.Warn("no strategy matched transaction, dropping",
		zap.String("signature", tx.Signature),
		zap.String("source", tx.Source),
		zap.Int("warnings_remaining", e.maxDropWarnings-e.dropWarnings))
}

// lamports converts a lamport count to SOL units.
func lamportsInt(v int64) decimal.Decimal {
	return decimal.New(v, -domain.NativeDecimals)
}

// lamportsFromString converts an optional string-encoded native amount to
// SOL units. Returns zero on malformed input.
func lamportsFromString(n *indexer.NativeAmount) decimal.Decimal {
	if n == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.Amount)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(-domain.NativeDecimals)
}

// splitEvenly divides a native amount across n fan-out legs. The split is
// arbitrary but deterministic; it keeps the total native value conserved
// across the legs of one hop.
func splitEvenly(total decimal.Decimal, n int) decimal.Decimal {
	if n <= 1 {
		return total
	}
	return total.Div(decimal.NewFromInt(int64(n)))
}
