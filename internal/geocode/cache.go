package geocode

import (
	"sync"
	"time"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

// entry is a definitive provider answer for one exact query string.
type entry struct {
	Coordinates domain.Coordinates
	Found       bool
	Tier        string
	StoredAt    time.Time
}

// cache is a thread-safe map of query string to provider answer. Entries are
// never evicted.
type cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func newCache() *cache {
	return &cache{entries: make(map[string]entry)}
}

func (c *cache) get(query string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[query]
	return e, ok
}

func (c *cache) put(query string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[query] = e
}

func (c *cache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
