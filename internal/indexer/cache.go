package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bizassist/bizassist/internal/rag"
)

const defaultCacheEntries = 16

// Cache memoizes built corpora by document identity. Concurrent builds for
// the same key run once. Entries are evicted oldest first.
type Cache struct {
	builder *Builder
	max     int

	mu      sync.Mutex
	entries map[string]*Corpus
	order   []string
	group   singleflight.Group
}

// NewCache wraps builder with a cache of at most maxEntries corpora.
func NewCache(builder *Builder, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	return &Cache{
		builder: builder,
		max:     maxEntries,
		entries: make(map[string]*Corpus),
	}
}

// Key derives a cache key from a document content hash and the settings
// that shaped its passages.
func (c *Cache) Key(contentHash string, chunkSize, overlap int) string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{
		contentHash,
		strconv.Itoa(chunkSize),
		strconv.Itoa(overlap),
		c.builder.Signature(),
	}, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// Build returns the cached corpus for key, building it from passages on a
// miss. The second return value reports a cache hit. Failed builds are not
// cached.
func (c *Cache) Build(ctx context.Context, key string, passages []rag.Passage) (*Corpus, bool, error) {
	if corpus, ok := c.get(key); ok {
		return corpus, true, nil
	}

	built := false
	v, err, _ := c.group.Do(key, func() (any, error) {
		if corpus, ok := c.get(key); ok {
			return corpus, nil
		}
		corpus, err := c.builder.Build(ctx, passages)
		if err != nil {
			return nil, err
		}
		built = true
		c.put(key, corpus)
		return corpus, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Corpus), !built, nil
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of cached corpora.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) get(key string) (*Corpus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	corpus, ok := c.entries[key]
	return corpus, ok
}

func (c *Cache) put(key string, corpus *Corpus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = corpus
		return
	}
	for len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = corpus
	c.order = append(c.order, key)
}
