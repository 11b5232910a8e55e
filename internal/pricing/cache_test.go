package pricing

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCache_WriteOnce(t *testing.T) {
	cache := NewCache()

	cache.Put("MintA", 1700000040, decimal.NewFromFloat(1.25))
	cache.Put("MintA", 1700000040, decimal.NewFromFloat(9.99))

	got, ok := cache.Get("MintA", 1700000040)
	if !ok {
		t.Fatal("expected cached price")
	}
	if !got.Equal(decimal.NewFromFloat(1.25)) {
		t.Errorf("got %s, want 1.25: first write must win", got)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestCache_KeyedByMintAndMinute(t *testing.T) {
	cache := NewCache()

	cache.Put("MintA", 1700000040, decimal.NewFromInt(1))
	cache.Put("MintA", 1700000100, decimal.NewFromInt(2))
	cache.Put("MintB", 1700000040, decimal.NewFromInt(3))

	if cache.Len() != 3 {
		t.Errorf("Len = %d, want 3", cache.Len())
	}
	if _, ok := cache.Get("MintA", 1700000160); ok {
		t.Error("unexpected hit for an unseen minute")
	}
}

func TestCache_Reset(t *testing.T) {
	cache := NewCache()
	cache.Put("MintA", 1700000040, decimal.NewFromInt(1))

	cache.Reset()

	if cache.Len() != 0 {
		t.Errorf("Len = %d after Reset, want 0", cache.Len())
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			minute := int64(1700000040 + (i%4)*60)
			cache.Put("MintA", minute, decimal.NewFromInt(int64(i)))
			cache.Get("MintA", minute)
		}(i)
	}
	wg.Wait()

	if cache.Len() != 4 {
		t.Errorf("Len = %d, want 4", cache.Len())
	}
}
