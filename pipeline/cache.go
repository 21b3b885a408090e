package pipeline

import (
	"sync"

	"health-analyzer/healthexport"
)

// Cache holds parsed exports keyed by the SHA-256 of their bytes. It is safe
// for concurrent use. Entries never expire on their own; callers drop them
// with Invalidate or Purge.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*healthexport.ParsedExport
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*healthexport.ParsedExport)}
}

// Get returns the export parsed from bytes hashing to key.
func (c *Cache) Get(key string) (*healthexport.ParsedExport, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[key]
	return p, ok
}

// Put stores p under its own content hash.
func (c *Cache) Put(p *healthexport.ParsedExport) {
	if c == nil || p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]*healthexport.ParsedExport)
	}
	c.entries[p.SourceSHA256] = p
}

// Invalidate drops one entry and reports whether it was present.
func (c *Cache) Invalidate(key string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Purge drops every entry.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len reports the number of cached exports.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// parse returns the cached export for data, parsing and storing it on a miss.
func (c *Cache) parse(data []byte, opts healthexport.ExtractOptions) (*healthexport.ParsedExport, bool, error) {
	key := healthexport.ContentHash(data)
	if p, ok := c.Get(key); ok {
		return p, true, nil
	}
	p, err := healthexport.ParseBytes(data, opts)
	if err != nil {
		return nil, false, err
	}
	c.Put(p)
	return p, false, nil
}
