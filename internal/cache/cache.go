// Package cache memoizes verification and generation outcomes by
// content fingerprint. Entries are immutable once inserted: results are
// content-addressed, so they never go stale for the same input, and
// repeated verification of byte-identical candidates is free.
package cache

import (
	"container/list"
	"sync"

	"codewarden/internal/artifact"
	"codewarden/internal/governor"
	"codewarden/internal/logging"
)

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// lruCache is a bounded map with least-recently-used eviction.
// Capacity 0 means unlimited.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element

	hits      int64
	misses    int64
	evictions int64
}

type lruEntry struct {
	key   string
	value interface{}
}

func newLRU(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *lruCache) put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		// Duplicate concurrent misses recompute the same
		// content-addressed value; overwriting is idempotent.
		el.Value.(*lruEntry).value = value
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = el

	if c.capacity > 0 && c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
			c.evictions++
		}
	}
}

func (c *lruCache) stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Size: c.order.Len()}
}

// VerificationCache memoizes governor results keyed by
// (governor_id, artifact fingerprint).
type VerificationCache struct {
	lru *lruCache
}

// NewVerificationCache creates a verification cache with the given capacity.
func NewVerificationCache(capacity int) *VerificationCache {
	return &VerificationCache{lru: newLRU(capacity)}
}

func verificationKey(governorID string, fp artifact.Fingerprint) string {
	return governorID + "\x00" + string(fp)
}

// Get returns the cached result for a (governor, artifact) pair.
func (c *VerificationCache) Get(governorID string, fp artifact.Fingerprint) (*governor.VerificationResult, bool) {
	v, ok := c.lru.get(verificationKey(governorID, fp))
	if !ok {
		return nil, false
	}
	return v.(*governor.VerificationResult), true
}

// Put stores a result. Only ok-status results are worth keeping:
// timeouts and crashes are transient and must be retried next pass.
func (c *VerificationCache) Put(governorID string, fp artifact.Fingerprint, res *governor.VerificationResult) {
	if res == nil || res.Status != governor.StatusOK {
		return
	}
	c.lru.put(verificationKey(governorID, fp), res)
	logging.Get(logging.CategoryCache).Debug("cached verification %s for %s", governorID, fp)
}

// Stats returns hit/miss/eviction counters.
func (c *VerificationCache) Stats() Stats { return c.lru.stats() }

// GenerationCache memoizes generated artifacts keyed by the
// (prompt, context) pair fingerprint.
type GenerationCache struct {
	lru *lruCache
}

// NewGenerationCache creates a generation cache with the given capacity.
func NewGenerationCache(capacity int) *GenerationCache {
	return &GenerationCache{lru: newLRU(capacity)}
}

// Get returns the cached artifact for a (prompt, context) pair.
func (c *GenerationCache) Get(prompt, context string) (*artifact.Artifact, bool) {
	v, ok := c.lru.get(string(artifact.PairFingerprint(prompt, context)))
	if !ok {
		return nil, false
	}
	return v.(*artifact.Artifact), true
}

// Put stores a generated artifact.
func (c *GenerationCache) Put(prompt, context string, art *artifact.Artifact) {
	if art == nil {
		return
	}
	c.lru.put(string(artifact.PairFingerprint(prompt, context)), art)
}

// Stats returns hit/miss/eviction counters.
func (c *GenerationCache) Stats() Stats { return c.lru.stats() }
