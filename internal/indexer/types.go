package indexer

import "github.com/shopspring/decimal"

// Transaction represents a single parsed swap transaction as returned by the
// enhanced-transactions indexer API. It is fetched, never mutated.
type Transaction struct {
	Description      string           `json:"description"`
	Type             string           `json:"type"`
	Source           string           `json:"source"`
	Fee              int64            `json:"fee"` // lamports
	FeePayer         string           `json:"feePayer"`
	Signature        string           `json:"signature"`
	Slot             int64            `json:"slot"`
	Timestamp        int64            `json:"timestamp"` // Unix seconds
	NativeTransfers  []NativeTransfer `json:"nativeTransfers"`
	TokenTransfers   []TokenTransfer  `json:"tokenTransfers"`
	TransactionError *TxError         `json:"transactionError"`
	Events           Events           `json:"events"`
}

// Failed reports whether the transaction errored on-chain.
func (t *Transaction) Failed() bool {
	return t.TransactionError != nil
}

// NativeTransfer represents a SOL transfer between accounts.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"` // lamports
}

// TokenTransfer represents a token transfer between accounts. The indexer
// reports the amount as a JSON number already scaled by token decimals;
// decoding into decimal.Decimal preserves the full precision.
type TokenTransfer struct {
	FromUserAccount  string          `json:"fromUserAccount"`
	ToUserAccount    string          `json:"toUserAccount"`
	FromTokenAccount string          `json:"fromTokenAccount"`
	ToTokenAccount   string          `json:"toTokenAccount"`
	TokenAmount      decimal.Decimal `json:"tokenAmount"`
	Mint             string          `json:"mint"`
}

// TxError represents a transaction error.
type TxError struct {
	Error string `json:"error"`
}

// Events holds the structured event data parsed by the indexer.
type Events struct {
	Swap *SwapEvent `json:"swap"`
}

// SwapEvent represents an explicit swap description for the transaction.
// Multi-hop swaps additionally carry per-hop detail in InnerSwaps.
type SwapEvent struct {
	NativeInput  *NativeAmount `json:"nativeInput"`
	NativeOutput *NativeAmount `json:"nativeOutput"`
	TokenInputs  []SwapToken   `json:"tokenInputs"`
	TokenOutputs []SwapToken   `json:"tokenOutputs"`
	InnerSwaps   []InnerSwap   `json:"innerSwaps"`
}

// NativeAmount represents a native SOL amount tied to an account.
// The amount is lamports encoded as a string.
type NativeAmount struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// SwapToken represents a token side of a swap event.
type SwapToken struct {
	UserAccount    string         `json:"userAccount"`
	TokenAccount   string         `json:"tokenAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"`
}

// RawTokenAmount holds an unscaled token amount with its decimals.
type RawTokenAmount struct {
	TokenAmount string `json:"tokenAmount"`
	Decimals    int    `json:"decimals"`
}

// Decimal returns the scaled token amount. Returns zero on a malformed
// amount string.
func (r RawTokenAmount) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(r.TokenAmount)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(int32(-r.Decimals))
}

// InnerSwap represents a single hop within a multi-hop swap.
type InnerSwap struct {
	TokenInputs  []TokenTransfer  `json:"tokenInputs"`
	TokenOutputs []TokenTransfer  `json:"tokenOutputs"`
	NativeInput  *NativeTransfer  `json:"nativeInput"`
	NativeOutput *NativeTransfer  `json:"nativeOutput"`
	NativeFees   []NativeTransfer `json:"nativeFees"`
	ProgramInfo  *ProgramInfo     `json:"programInfo"`
}

// ProgramInfo identifies the DEX program used in an inner swap hop.
type ProgramInfo struct {
	Source          string `json:"source"`
	Account         string `json:"account"`
	ProgramName     string `json:"programName"`
	InstructionName string `json:"instructionName"`
}
