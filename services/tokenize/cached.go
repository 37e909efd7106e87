package tokenize

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const DefaultCacheSize = 1024

// Cached memoizes tokenizations and collapses concurrent calls for the same text.
type Cached struct {
	inner Tokenizer
	cache *lru.Cache[string, []string]
	group singleflight.Group
}

var _ Tokenizer = (*Cached)(nil)

func NewCached(inner Tokenizer, cacheSize int) *Cached {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []string](cacheSize)
	return &Cached{
		inner: inner,
		cache: cache,
	}
}

// Tokenize shares one backend call between concurrent callers of the same text.
// The shared call is detached from any single caller's cancellation and is
// bounded by the backend's own timeout; a cancelled caller stops waiting.
func (c *Cached) Tokenize(ctx context.Context, text string) ([]string, error) {
	if terms, ok := c.cache.Get(text); ok {
		return slices.Clone(terms), nil
	}

	resultC := c.group.DoChan(text, func() (interface{}, error) {
		if terms, ok := c.cache.Get(text); ok {
			return terms, nil
		}
		terms, err := c.inner.Tokenize(context.WithoutCancel(ctx), text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(text, terms)
		return terms, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultC:
		if result.Err != nil {
			return nil, result.Err
		}
		return slices.Clone(result.Val.([]string)), nil
	}
}

func (c *Cached) Len() int {
	return c.cache.Len()
}
