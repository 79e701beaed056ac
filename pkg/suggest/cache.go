package suggest

import (
	"strconv"
	"sync"

	"github.com/bastiangx/qacbox/pkg/lookup"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Cache keeps recent completion answers keyed by query and limit, evicting
// the least recently used entry when full.
type Cache struct {
	entries     *patricia.Trie
	accessTime  map[string]int64
	accessCount int64
	hits        int
	misses      int
	maxEntries  int
	mu          sync.Mutex
}

// NewCache returns a cache for maxEntries answers. A cache with no room
// stores nothing.
func NewCache(maxEntries int) *Cache {
	return &Cache{
		entries:    patricia.NewTrie(),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

func cacheKey(query string, limit int) string {
	return query + "\x00" + strconv.Itoa(limit)
}

// Get returns the cached answer for query and limit.
func (c *Cache) Get(query string, limit int) ([]lookup.Result, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, limit)
	item := c.entries.Get(patricia.Prefix(key))
	if item == nil {
		c.misses++
		return nil, false
	}
	c.hits++
	c.markAccessed(key)
	return item.([]lookup.Result), true
}

// Put stores an answer. Callers must not modify results afterwards.
func (c *Cache) Put(query string, limit int, results []lookup.Result) {
	if c == nil || c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, limit)
	if _, ok := c.accessTime[key]; !ok && len(c.accessTime) >= c.maxEntries {
		c.evictLRU()
	}
	c.entries.Set(patricia.Prefix(key), results)
	c.markAccessed(key)
}

// Reset drops every entry, e.g. after the dictionary changed.
func (c *Cache) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = patricia.NewTrie()
	c.accessTime = make(map[string]int64, c.maxEntries)
}

// Stats returns size and hit counters.
func (c *Cache) Stats() map[string]int {
	if c == nil {
		return map[string]int{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]int{
		"cacheEntries": len(c.accessTime),
		"maxEntries":   c.maxEntries,
		"cacheHits":    c.hits,
		"cacheMisses":  c.misses,
	}
}

func (c *Cache) markAccessed(key string) {
	c.accessCount++
	c.accessTime[key] = c.accessCount
}

func (c *Cache) evictLRU() {
	var oldestKey string
	var oldestTime int64 = 1<<63 - 1

	for key, t := range c.accessTime {
		if t < oldestTime {
			oldestTime = t
			oldestKey = key
		}
	}
	if oldestKey != "" {
		c.entries.Delete(patricia.Prefix(oldestKey))
		delete(c.accessTime, oldestKey)
		log.Debugf("Evicted %q from completion cache", oldestKey)
	}
}
