// Package loader reads the text of import documents from where the import
// API put them.
package loader

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"
)

// TextLoader returns the text stored under path.
// Implementations may load files from disk, cloud storage, or other sources.
type TextLoader interface {
	LoadText(ctx context.Context, path string) (string, error)
}

// Cache keeps loaded file contents by key and collapses concurrent loads of
// the same key into one. The zero value is ready to use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	group   singleflight.Group
}

// Get returns the cached bytes for key or calls load once to fill them.
// Failed loads are not cached.
func (c *Cache) Get(key string, load func() ([]byte, error)) ([]byte, error) {
	if b, ok := c.lookup(key); ok {
		return b, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if b, ok := c.lookup(key); ok {
			return b, nil
		}
		b, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.entries == nil {
			c.entries = make(map[string][]byte)
		}
		c.entries[key] = b
		c.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Forget drops key from the cache.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[key]
	return b, ok
}

// Text converts raw file bytes into text. A UTF-8 byte order mark is
// removed and invalid sequences are replaced.
func Text(b []byte) string {
	s := strings.TrimPrefix(string(b), "\ufeff")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return s
}
