package indicator

import (
	"sync"

	"github.com/amirphl/strategy-lab/internal/candle"
)

type cacheKey struct {
	kind        Kind
	period      int
	length      int
	fingerprint uint64
}

// Cache memoizes indicator series for one evaluation pass. The owner of the
// pass creates it (or clears it) before the pass begins and hands it to every
// rule evaluation. Returned slices are shared and must not be modified.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey][]float64
	hits    uint64
	misses  uint64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey][]float64)}
}

// Get returns the cached series for (kind, period, series), computing it on
// first use. The key includes the series content fingerprint, so a different
// series of identical length never reads a stale entry.
func (c *Cache) Get(kind Kind, period int, s candle.Series) ([]float64, error) {
	key := cacheKey{kind: kind, period: period, length: s.Len(), fingerprint: s.Fingerprint()}

	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	values, err := Compute(kind, period, s.Closes())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// another worker may have filled the slot meanwhile; both results are equal
	if v, ok := c.entries[key]; ok {
		c.hits++
		return v, nil
	}
	c.misses++
	c.entries[key] = values
	return values, nil
}

// Clear drops every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey][]float64)
	c.hits, c.misses = 0, 0
}

// Len returns the number of cached series.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since the last Clear.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
