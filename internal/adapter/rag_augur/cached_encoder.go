package rag_augur

import (
	"context"
	"fmt"
	"time"

	"rag-governor/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedEncoder memoizes embeddings per input text. Only texts missing from
// the cache are sent to the wrapped encoder, in their original order.
type CachedEncoder struct {
	next  domain.VectorEncoder
	cache *expirable.LRU[string, []float32]
}

// NewCachedEncoder wraps next with an expirable LRU. A size <= 0 returns
// next unchanged.
func NewCachedEncoder(next domain.VectorEncoder, size int, ttl time.Duration) domain.VectorEncoder {
	if size <= 0 {
		return next
	}
	return &CachedEncoder{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missing    []string
		missingPos []int
	)
	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text)); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingPos = append(missingPos, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.next.Encode(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(vectors))
	}
	for j, vec := range vectors {
		out[missingPos[j]] = vec
		c.cache.Add(c.key(missing[j]), vec)
	}
	return out, nil
}

func (c *CachedEncoder) Version() string {
	return c.next.Version()
}

// Len reports the number of cached entries.
func (c *CachedEncoder) Len() int {
	return c.cache.Len()
}

// key scopes entries to the encoder version so a model swap never serves stale vectors.
func (c *CachedEncoder) key(text string) string {
	return c.next.Version() + "\x00" + text
}

var _ domain.VectorEncoder = (*CachedEncoder)(nil)
