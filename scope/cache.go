package scope

import (
	"sort"
	"sync"

	"github.com/maruel/natural"
)

// Cache maps path keys to paths. Stored paths are shared by every node with
// the same key, so implementations must hand out stored values unchanged.
type Cache interface {
	Get(key string) (Path, bool)
	// Put stores p unless key is already present and returns the path held
	// by cache for key afterwards.
	Put(key string, p Path) Path
	Len() int
}

// MemoryCache is unbounded in-memory cache, entries are never evicted.
// It is safe for concurrent use.
type MemoryCache struct {
	mu    sync.RWMutex
	paths map[string]Path
}

// NewMemoryCache creates empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{paths: make(map[string]Path)}
}

func (c *MemoryCache) Get(key string) (Path, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.paths[key]
	return p, ok
}

// Put stores p under key. First stored path wins: paths already handed out
// to nodes must stay the only instance for their key.
func (c *MemoryCache) Put(key string, p Path) Path {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stored, exists := c.paths[key]; exists {
		return stored
	}
	c.paths[key] = p
	return p
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.paths)
}

// Keys returns all cached keys in natural order.
func (c *MemoryCache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.paths))
	for k := range c.paths {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return natural.Less(keys[i], keys[j])
	})
	return keys
}
