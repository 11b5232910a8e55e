// Package pricing annotates legs with historical USD pricing at
// minute-bucket granularity.
package pricing

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Key identifies one cached price: an asset at a minute bucket.
type Key struct {
	Mint   string
	Minute int64 // bucket start, Unix seconds
}

// Cache stores (mint, minute) → USD price. A historical price at a past
// minute is immutable, so entries are write-once: the first Put for a key
// wins and later writes are ignored. Reads are safe across goroutines.
type Cache struct {
	mu     sync.RWMutex
	prices map[Key]decimal.Decimal
}

// NewCache creates an empty price cache.
func NewCache() *Cache {
	return &Cache{prices: make(map[Key]decimal.Decimal)}
}

// Get returns the cached price for an asset at a minute bucket.
func (c *Cache) Get(mint string, minute int64) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[Key{Mint: mint, Minute: minute}]
	return p, ok
}

// Put stores a price unless the key is already populated.
func (c *Cache) Put(mint string, minute int64, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := Key{Mint: mint, Minute: minute}
	if _, exists := c.prices[key]; exists {
		return
	}
	c.prices[key] = price
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.prices)
}

// Reset clears the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices = make(map[Key]decimal.Decimal)
}
