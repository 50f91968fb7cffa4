package shader

import (
	"sync"

	"github.com/born-ml/texel/internal/logging"
)

// Cache memoizes generated programs by key. It is safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	programs map[string]Program
}

// NewCache returns an empty program cache.
func NewCache() *Cache {
	return &Cache{programs: make(map[string]Program)}
}

// GetOrCreate returns the program cached under key, calling create on a miss.
// Failed creations are not cached.
func (c *Cache) GetOrCreate(key string, create func() (Program, error)) (Program, error) {
	c.mu.RLock()
	if p, ok := c.programs[key]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	p, err := create()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.programs[key]; ok {
		return existing, nil
	}
	c.programs[key] = p
	logging.Logger().Debug("program generated", "kind", p.Kind(), "key", key)
	return p, nil
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

// Programs returns a snapshot of the cached programs in no particular order.
func (c *Cache) Programs() []Program {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Program, 0, len(c.programs))
	for _, p := range c.programs {
		out = append(out, p)
	}
	return out
}
