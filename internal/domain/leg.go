package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action represents the direction of a trade leg.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// String returns the string representation of Action.
func (a Action) String() string {
	return string(a)
}

// IsValid checks if the action is a valid value.
func (a Action) IsValid() bool {
	return a == ActionBuy || a == ActionSell
}

// Leg represents one side of one swap: a single buy or sell of a token
// reconstructed from a wallet's transaction history.
//
// A Leg is created by the extractor, has its Symbol set by the metadata
// resolver, its pricing fields set by the price enricher, and (for sells)
// its RealizedPnLUSD set by the FIFO ledger.
type Leg struct {
	// Identity. (Timestamp, HopIndex, LegIndex) gives deterministic
	// intra-transaction ordering for multi-leg transactions.
	Signature string
	Slot      int64
	Timestamp int64 // Unix seconds
	HopIndex  int
	LegIndex  int

	// Classification.
	Action Action
	Venue  string // DEX / aggregator tag reported by the indexer

	// Subject asset.
	Mint   string
	Symbol string // resolved lazily; empty until metadata resolution
	Amount decimal.Decimal

	// Counter side: either a native SOL amount, or a counter asset
	// identifier+amount for asset-to-asset swaps.
	NativeAmount  decimal.Decimal // SOL units; zero when counter side is an asset
	CounterMint   string
	CounterAmount decimal.Decimal

	// Pricing. Priced=false means enrichment failed for this leg: it stays
	// in the output sequence but must not touch any FIFO cost basis.
	PriceUSD decimal.Decimal
	ValueUSD decimal.Decimal
	FeesUSD  decimal.Decimal
	Priced   bool

	// RealizedPnLUSD is set on priced sell legs after FIFO matching.
	// Nil on buy legs and on unpriced sells.
	RealizedPnLUSD *decimal.Decimal
}

// NativeDenominated reports whether the counter side of this leg is SOL.
func (l *Leg) NativeDenominated() bool {
	return !l.NativeAmount.IsZero()
}

// Time returns the leg's timestamp as time.Time in UTC.
func (l *Leg) Time() time.Time {
	return time.Unix(l.Timestamp, 0).UTC()
}

// MinuteBucket returns the leg timestamp truncated to the start of its
// minute, the granularity used for price caching.
func (l *Leg) MinuteBucket() int64 {
	return l.Timestamp / 60 * 60
}
