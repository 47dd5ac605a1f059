package template

import "sync"

// contentCache holds template content that is read once per process lifetime.
// There is deliberately no invalidation: restart the process to pick up
// bundled-template changes. First-writer-wins is fine because redundant
// loads produce identical content.
type contentCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func newContentCache() *contentCache {
	return &contentCache{entries: make(map[string]string)}
}

func (c *contentCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *contentCache) put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.entries[key] = value
	}
}
