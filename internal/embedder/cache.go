package embedder

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/54b3r/docqa-go/internal/rag"
)

// Cached wraps an Embedder and memoises single-text calls, which is the shape
// of every query embedding. Batch calls (ingestion) bypass the cache.
type Cached struct {
	inner   rag.Embedder
	cache   *gocache.Cache
	maxSize int
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCached wraps inner with a cache of at most maxSize entries, each kept for ttl.
func NewCached(inner rag.Embedder, maxSize int, ttl time.Duration) *Cached {
	return &Cached{
		inner:   inner,
		cache:   gocache.New(ttl, 2*ttl),
		maxSize: maxSize,
	}
}

// Embed implements rag.Embedder.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) != 1 {
		return c.inner.Embed(ctx, texts)
	}

	if v, ok := c.cache.Get(texts[0]); ok {
		c.hits.Add(1)
		return [][]float32{v.([]float32)}, nil
	}
	c.misses.Add(1)

	out, err := c.inner.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(out) == 1 && c.cache.ItemCount() < c.maxSize {
		c.cache.SetDefault(texts[0], out[0])
	}
	return out, nil
}

// Stats returns the cumulative hit and miss counts.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
