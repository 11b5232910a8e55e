package metadata

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"

	"solana-wallet-pnl/internal/domain"
)

// fakeAPI records every batch it receives and answers from a static map.
type fakeAPI struct {
	known   map[string]domain.TokenMetadata
	batches [][]string
	err     error
}

func (f *fakeAPI) FetchBatch(ctx context.Context, mints []string) (map[string]domain.TokenMetadata, error) {
	f.batches = append(f.batches, append([]string(nil), mints...))
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]domain.TokenMetadata{}
	for _, mint := range mints {
		if md, ok := f.known[mint]; ok {
			out[mint] = md
		}
	}
	return out, nil
}

func TestResolve_KnownTokensSkipNetwork(t *testing.T) {
	api := &fakeAPI{}
	r := NewResolver(api, nil)

	result := r.Resolve(context.Background(), []string{domain.WSOLMint, domain.USDCMint})

	if len(api.batches) != 0 {
		t.Errorf("well-known mints made %d network batches, want 0", len(api.batches))
	}
	if result[domain.WSOLMint].Symbol != "SOL" {
		t.Errorf("WSOL symbol = %s, want SOL", result[domain.WSOLMint].Symbol)
	}
	if result[domain.USDCMint].Symbol != "USDC" {
		t.Errorf("USDC symbol = %s, want USDC", result[domain.USDCMint].Symbol)
	}
}

func TestResolve_BatchesAboveCap(t *testing.T) {
	api := &fakeAPI{known: map[string]domain.TokenMetadata{}}
	r := NewResolver(api, nil)

	mints := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		mints = append(mints, fmt.Sprintf("Mint%04d", i))
	}

	result := r.Resolve(context.Background(), mints)

	if len(api.batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(api.batches))
	}
	if len(api.batches[0]) != 100 || len(api.batches[1]) != 100 || len(api.batches[2]) != 50 {
		t.Errorf("batch sizes = %d, %d, %d, want 100, 100, 50",
			len(api.batches[0]), len(api.batches[1]), len(api.batches[2]))
	}
	if len(result) != 250 {
		t.Errorf("resolved %d mints, want 250", len(result))
	}
}

func TestResolve_CacheHitSkipsSecondFetch(t *testing.T) {
	api := &fakeAPI{known: map[string]domain.TokenMetadata{
		"MintA": {Mint: "MintA", Symbol: "AAA", Decimals: 6},
	}}
	r := NewResolver(api, nil)

	r.Resolve(context.Background(), []string{"MintA"})
	r.Resolve(context.Background(), []string{"MintA"})

	if len(api.batches) != 1 {
		t.Errorf("made %d batches for one mint resolved twice, want 1", len(api.batches))
	}
	if r.CacheSize() != 1 {
		t.Errorf("CacheSize = %d, want 1", r.CacheSize())
	}
}

func TestResolve_DuplicatesAndEmptyMintsCollapsed(t *testing.T) {
	api := &fakeAPI{known: map[string]domain.TokenMetadata{}}
	r := NewResolver(api, nil)

	r.Resolve(context.Background(), []string{"MintA", "MintA", "", "MintA"})

	if len(api.batches) != 1 || len(api.batches[0]) != 1 {
		t.Errorf("batches = %v, want one batch with one mint", api.batches)
	}
}

func TestResolve_PlaceholderOnBatchFailure(t *testing.T) {
	api := &fakeAPI{err: errors.New("service down")}
	r := NewResolver(api, nil)

	mint := "So1MintWithALongEnoughAddress111111111111111"
	result := r.Resolve(context.Background(), []string{mint})

	md, ok := result[mint]
	if !ok {
		t.Fatal("mint missing from result on batch failure")
	}
	want := "So1M..1111"
	if md.Symbol != want {
		t.Errorf("placeholder symbol = %s, want %s", md.Symbol, want)
	}
}

func TestResolve_PlaceholderForOmittedMint(t *testing.T) {
	// The service answered but did not know this mint.
	api := &fakeAPI{known: map[string]domain.TokenMetadata{}}
	r := NewResolver(api, nil)

	mint := "UnknownMint1111111111111111111111111111111111"
	result := r.Resolve(context.Background(), []string{mint})

	if result[mint].Symbol != "Unkn..1111" {
		t.Errorf("symbol = %s, want truncated placeholder", result[mint].Symbol)
	}
}

func TestApply_SetsSymbols(t *testing.T) {
	api := &fakeAPI{known: map[string]domain.TokenMetadata{
		"MintA": {Mint: "MintA", Symbol: "AAA"},
	}}
	r := NewResolver(api, nil)

	legs := []domain.Leg{
		{Mint: "MintA"},
		{Mint: domain.USDCMint},
	}

	r.Apply(context.Background(), legs)

	if legs[0].Symbol != "AAA" {
		t.Errorf("legs[0].Symbol = %s, want AAA", legs[0].Symbol)
	}
	if legs[1].Symbol != "USDC" {
		t.Errorf("legs[1].Symbol = %s, want USDC", legs[1].Symbol)
	}
}

func TestReset(t *testing.T) {
	api := &fakeAPI{known: map[string]domain.TokenMetadata{}}
	r := NewResolver(api, nil)

	r.Resolve(context.Background(), []string{"MintA"})
	r.Reset()

	if r.CacheSize() != 0 {
		t.Errorf("CacheSize = %d after Reset, want 0", r.CacheSize())
	}
}
