package domain

// Well-known mint addresses.
const (
	WSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// NativeDecimals is the number of decimals of the chain's base currency
// (lamports per SOL = 1e9).
const NativeDecimals = 9

// stablecoins maps mints that are pegged to 1 USD; the price enricher
// short-circuits these to a fixed 1.0 without a network call.
var stablecoins = map[string]bool{
	USDCMint: true,
	USDTMint: true,
}

// IsStablecoin reports whether the mint is treated as a 1.0 USD stablecoin.
func IsStablecoin(mint string) bool {
	return stablecoins[mint]
}

// knownTokens is a static table of tokens whose metadata never needs a
// network lookup.
var knownTokens = map[string]TokenMetadata{
	WSOLMint: {Mint: WSOLMint, Symbol: "SOL", Decimals: NativeDecimals},
	USDCMint: {Mint: USDCMint, Symbol: "USDC", Decimals: 6},
	USDTMint: {Mint: USDTMint, Symbol: "USDT", Decimals: 6},
}

// KnownToken returns static metadata for well-known mints.
func KnownToken(mint string) (TokenMetadata, bool) {
	md, ok := knownTokens[mint]
	return md, ok
}
