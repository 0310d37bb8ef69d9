package quotes

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Quote is an ephemeral, cached price observation for one symbol.
type Quote struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    int64
	FetchedAt time.Time
}

type cacheEntry struct {
	quote Quote
}

// Cache holds the most recently fetched Quote per symbol, along with
// single-flight fetch coalescing so concurrent requests for the same
// symbol never trigger duplicate upstream calls: a mutex-guarded map
// plus a singleflight.Group keyed by symbol.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

// NewCache returns an empty Cache ready for use.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached quote for symbol and whether the entry is
// within freshness of now, plus whether any entry exists at all (for
// last-known-good fallback on a fetch failure).
func (c *Cache) Get(symbol string, freshness time.Duration, now time.Time) (q Quote, fresh bool, found bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	if !ok {
		return Quote{}, false, false
	}
	return e.quote, now.Sub(e.quote.FetchedAt) <= freshness, true
}

// Put stores q as the latest known quote for its symbol.
func (c *Cache) Put(q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[q.Symbol] = cacheEntry{quote: q}
}

// Fetch coalesces concurrent calls for the same symbol into a single
// invocation of fn, so a cache miss under load triggers one upstream
// request instead of one per waiter.
func (c *Cache) Fetch(symbol string, fn func() (Quote, error)) (Quote, error) {
	v, err, _ := c.group.Do(symbol, func() (any, error) {
		return fn()
	})
	if err != nil {
		return Quote{}, err
	}
	return v.(Quote), nil
}
