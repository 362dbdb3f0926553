package currency

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type cacheEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// RateCache holds fetched exchange rates for a bounded TTL. It is safe
// for concurrent use and carries no global state; the converter owns it.
type RateCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewRateCache(ttl time.Duration) *RateCache {
	return &RateCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *RateCache) Get(pair string) (decimal.Decimal, bool) {
	c.mu.RLock()
	entry, ok := c.entries[pair]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		return decimal.Zero, false
	}
	return entry.rate, true
}

func (c *RateCache) Set(pair string, rate decimal.Decimal) {
	c.mu.Lock()
	c.entries[pair] = cacheEntry{
		rate:      rate,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}
