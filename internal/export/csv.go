// Package export renders the output leg sequence as flat rows for
// downstream reporting and analytics callers.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"solana-wallet-pnl/internal/domain"
)

// header lists the flat-row fields, one column per exposed Leg field.
var header = []string{
	"signature",
	"slot",
	"timestamp",
	"action",
	"mint",
	"symbol",
	"amount",
	"counter_mint",
	"counter_amount",
	"price_usd",
	"value_usd",
	"realized_pnl_usd",
	"fees_usd",
	"source",
	"priced",
}

// WriteCSV writes legs as CSV rows. Nullable fields (counter side on
// native legs, price on unpriced legs, P&L on buys) render as empty
// columns.
func WriteCSV(w io.Writer, legs []domain.Leg) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range legs {
		if err := cw.Write(row(&legs[i])); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func row(leg *domain.Leg) []string {
	counterMint := leg.CounterMint
	counterAmount := ""
	switch {
	case leg.NativeDenominated():
		counterMint = domain.WSOLMint
		counterAmount = leg.NativeAmount.String()
	case leg.CounterMint != "":
		counterAmount = leg.CounterAmount.String()
	}

	price, value, fees := "", "0", "0"
	if leg.Priced {
		price = leg.PriceUSD.String()
		value = leg.ValueUSD.String()
		fees = leg.FeesUSD.String()
	}

	pnl := ""
	if leg.RealizedPnLUSD != nil {
		pnl = leg.RealizedPnLUSD.String()
	}

	return []string{
		leg.Signature,
		strconv.FormatInt(leg.Slot, 10),
		leg.Time().Format(time.RFC3339),
		leg.Action.String(),
		leg.Mint,
		leg.Symbol,
		leg.Amount.String(),
		counterMint,
		counterAmount,
		price,
		value,
		pnl,
		fees,
		leg.Venue,
		strconv.FormatBool(leg.Priced),
	}
}
