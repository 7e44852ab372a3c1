// Package signalcache memoizes model responses keyed by the exact
// analysis payload, so identical market snapshots within the TTL never
// pay for a second completion.
package signalcache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"trading-agent/internal/types"
)

// Digest derives the cache key for a canonical payload. The stage
// discriminator keeps analysis and review entries for the same snapshot
// from colliding.
func Digest(payload []byte, stage string) string {
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte("|" + stage))
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	key     string
	value   string
	expires time.Time
}

// Cache is a fixed-capacity LRU with per-entry TTL. Expired entries are
// dropped lazily on lookup; capacity evictions take the least recently
// used entry. Safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	ttl    time.Duration
	cap    int
	items  map[string]*list.Element
	order  *list.List // front = most recently used
	hits   uint64
	misses uint64
	now    func() time.Time
}

func New(ttl time.Duration, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 200
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{
		ttl:   ttl,
		cap:   capacity,
		items: make(map[string]*list.Element, capacity),
		order: list.New(),
		now:   time.Now,
	}
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return "", false
	}
	ent := el.Value.(*entry)
	if c.now().After(ent.expires) {
		c.order.Remove(el)
		delete(c.items, key)
		c.misses++
		return "", false
	}
	c.order.MoveToFront(el)
	c.hits++
	return ent.value, true
}

func (c *Cache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry)
		ent.value = value
		ent.expires = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.cap {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
	el := c.order.PushFront(&entry{key: key, value: value, expires: c.now().Add(c.ttl)})
	c.items[key] = el
}

func (c *Cache) Stats() types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return types.CacheStats{
		Entries: c.order.Len(),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}
