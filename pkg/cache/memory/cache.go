package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aura-edu/aura/pkg/models"
)

// Cache is an exact-match response cache held in process memory.
// Entries are never evicted; stale entries are skipped on lookup.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
	ttl     time.Duration
	now     func() time.Time
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a Cache whose entries stay fresh for ttl.
// A nil clock defaults to time.Now.
func New(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]models.CacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Fingerprint computes the SHA-256 hex digest of model + "::" + prompt.
func Fingerprint(model, prompt string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte("::"))
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached text for fingerprint if the entry is still fresh.
func (c *Cache) Get(fingerprint string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[fingerprint]
	c.mu.RUnlock()

	if !ok || !c.fresh(entry) {
		c.misses.Add(1)
		return "", false
	}

	c.hits.Add(1)
	return entry.Text, true
}

// Put stores text under fingerprint, overwriting any previous entry.
func (c *Cache) Put(fingerprint, model, text string) {
	c.mu.Lock()
	c.entries[fingerprint] = models.CacheEntry{
		Fingerprint: fingerprint,
		Model:       model,
		Text:        text,
		CreatedAt:   c.now(),
	}
	c.mu.Unlock()
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() models.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var fresh int64
	for _, e := range c.entries {
		if c.fresh(e) {
			fresh++
		}
	}
	return models.CacheStats{
		Entries: int64(len(c.entries)),
		Fresh:   fresh,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) fresh(e models.CacheEntry) bool {
	return c.now().Sub(e.CreatedAt) < c.ttl
}

// Entry returns the stored entry regardless of freshness.
func (c *Cache) Entry(fingerprint string) (models.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[fingerprint]
	return e, ok
}
