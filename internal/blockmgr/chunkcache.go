package blockmgr

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Frankenstein-xin/wiredtiger/internal/metrics"
)

// cookieKey is the chunk cache key: a block is addressed by object and
// offset, independent of the cookie's checksum field.
type cookieKey struct {
	objectID   uint32
	fileOffset uint64
}

// ChunkCache holds recently-read block bytes keyed by object/offset. A miss
// is never an error; an out-of-space condition on insert is swallowed, per
// the read path's "not fatal, fall through to direct read" contract.
type ChunkCache struct {
	cache *lru.Cache[cookieKey, []byte]
}

// NewChunkCache builds a ChunkCache holding up to entries blocks. A
// non-positive entries disables the cache: Get always misses, Put is a
// no-op, exactly as if chunk caching were unconfigured.
func NewChunkCache(entries int) *ChunkCache {
	if entries <= 0 {
		return &ChunkCache{}
	}
	c, _ := lru.New[cookieKey, []byte](entries)
	return &ChunkCache{cache: c}
}

// Enabled reports whether the cache is configured.
func (c *ChunkCache) Enabled() bool {
	return c != nil && c.cache != nil
}

func (c *ChunkCache) key(ck Cookie) cookieKey {
	return cookieKey{objectID: ck.ObjectID, fileOffset: ck.FileOffset}
}

// Get returns a copy of the cached bytes for cookie, if present.
func (c *ChunkCache) Get(ck Cookie) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	buf, ok := c.cache.Get(c.key(ck))
	if !ok {
		metrics.ChunkCacheMissesTotal.Inc()
		return nil, false
	}
	metrics.ChunkCacheHitsTotal.Inc()
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, true
}

// Put stores a copy of buf for cookie. A full cache evicts its least
// recently used entry rather than failing the put.
func (c *ChunkCache) Put(ck Cookie, buf []byte) {
	if !c.Enabled() {
		return
	}
	stored := make([]byte, len(buf))
	copy(stored, buf)
	c.cache.Add(c.key(ck), stored)
}

// Invalidate evicts cookie's entry, used when a cached read's checksum
// turns out stale and the direct read path must be retried.
func (c *ChunkCache) Invalidate(ck Cookie) {
	if !c.Enabled() {
		return
	}
	c.cache.Remove(c.key(ck))
}
