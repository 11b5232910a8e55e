package domain

// TokenMetadata represents token metadata resolved from the metadata service.
type TokenMetadata struct {
	Mint     string
	Symbol   string
	Name     *string // nullable
	Decimals int
}
