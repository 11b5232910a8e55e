// Package ledger computes realized P&L per token using FIFO cost-basis
// accounting.
package ledger

import (
	"sort"

	"solana-wallet-pnl/internal/domain"
)

// SortLegs orders legs by (timestamp ASC, hop ASC, leg ASC, signature ASC).
// Legs within one transaction are causally simultaneous on-chain, so this
// total order is what makes settlement reproducible; the signature is a
// final tiebreaker for distinct transactions sharing a timestamp.
func SortLegs(legs []domain.Leg) {
	sort.SliceStable(legs, func(i, j int) bool {
		return compareLegs(&legs[i], &legs[j]) < 0
	})
}

// compareLegs returns negative if a orders before b, positive if after,
// zero if equal.
func compareLegs(a, b *domain.Leg) int {
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	if a.Signature != b.Signature {
		if a.Signature < b.Signature {
			return -1
		}
		return 1
	}
	if a.HopIndex != b.HopIndex {
		if a.HopIndex < b.HopIndex {
			return -1
		}
		return 1
	}
	if a.LegIndex != b.LegIndex {
		if a.LegIndex < b.LegIndex {
			return -1
		}
		return 1
	}
	return 0
}
