// Package memory provides an in-process ChunkCache with per-entry expiry.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ChunkCache = (*Cache)(nil)

type item struct {
	text    string
	expires time.Time
}

// Cache holds chunk text per namespace. A zero TTL never expires.
type Cache struct {
	mu         sync.RWMutex
	ttl        time.Duration
	now        func() time.Time
	namespaces map[string]map[string]item
}

// New creates an empty cache.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:        ttl,
		now:        time.Now,
		namespaces: make(map[string]map[string]item),
	}
}

// Put stores texts under namespace.
func (c *Cache) Put(_ context.Context, namespace string, texts map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns, ok := c.namespaces[namespace]
	if !ok {
		ns = make(map[string]item, len(texts))
		c.namespaces[namespace] = ns
	}
	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}
	for id, text := range texts {
		ns[id] = item{text: text, expires: expires}
	}
	return nil
}

// Get returns the unexpired texts found for ids.
func (c *Cache) Get(_ context.Context, namespace string, ids []string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	out := make(map[string]string, len(ids))
	ns := c.namespaces[namespace]
	for _, id := range ids {
		it, ok := ns[id]
		if !ok || (!it.expires.IsZero() && now.After(it.expires)) {
			continue
		}
		out[id] = it.text
	}
	return out, nil
}

// DeleteNamespace drops every entry of namespace.
func (c *Cache) DeleteNamespace(_ context.Context, namespace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.namespaces, namespace)
	return nil
}

// Close releases resources.
func (c *Cache) Close() error {
	return nil
}
