package engine

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/yourusername/arxengine/internal/boardid"
)

// DefaultCacheShards is the shard count used when none is configured
const DefaultCacheShards = 16

// CacheKey is the exact 82-byte board encoding
type CacheKey = [boardid.EncodedSize]byte

// CacheEntry stores a finished search
type CacheEntry struct {
	BestMove     Move
	AverageScore float64
	Simulations  int // 0 when the move was forced or a King capture
}

// PositionCache maps board encodings to search results. Keys are spread
// over mutex-guarded shards by xxhash. Concurrent stores for the same key
// keep the last writer's entry.
type PositionCache struct {
	shards []cacheShard
	mask   uint64

	// Statistics
	lookups atomic.Uint64
	hits    atomic.Uint64
	adds    atomic.Uint64
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[CacheKey]CacheEntry
}

// NewPositionCache creates a cache with the given number of shards,
// rounded up to a power of 2
func NewPositionCache(shards int) *PositionCache {
	if shards <= 0 {
		shards = DefaultCacheShards
	}
	p := 1
	for p < shards {
		p <<= 1
	}

	c := &PositionCache{
		shards: make([]cacheShard, p),
		mask:   uint64(p - 1),
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[CacheKey]CacheEntry)
	}
	return c
}

func (c *PositionCache) shard(key *CacheKey) *cacheShard {
	return &c.shards[xxhash.Sum64(key[:])&c.mask]
}

// Lookup returns the entry stored for key
func (c *PositionCache) Lookup(key CacheKey) (CacheEntry, bool) {
	s := c.shard(&key)
	c.lookups.Add(1)

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	}
	return entry, ok
}

// Store records entry for key, replacing any previous entry
func (c *PositionCache) Store(key CacheKey, entry CacheEntry) {
	s := c.shard(&key)

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	c.adds.Add(1)
}

// Flush clears all entries and statistics
func (c *PositionCache) Flush() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		clear(s.entries)
		s.mu.Unlock()
	}
	c.lookups.Store(0)
	c.hits.Store(0)
	c.adds.Store(0)
}

// Len returns the number of cached positions
func (c *PositionCache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Stats returns cache statistics
func (c *PositionCache) Stats() (lookups, hits, adds uint64) {
	return c.lookups.Load(), c.hits.Load(), c.adds.Load()
}

// HitRate returns the cache hit rate as a percentage
func (c *PositionCache) HitRate() float64 {
	lookups := c.lookups.Load()
	if lookups == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(lookups) * 100
}
