package embcache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

// Cache memoizes document embeddings by document ID for the life of the
// process. It must be purged whenever the document cache refills, so a
// stale vector for a changed document never survives a reload.
type Cache struct {
	inner      domain.Embedder
	entries    *lru.Cache[string, []float32]
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a document embedding cache in front of the given embedder.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	size int,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) (*Cache, error) {
	entries, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding lru: %w", err)
	}
	return &Cache{
		inner:      inner,
		entries:    entries,
		cacheTotal: cacheTotal,
		logger:     logger,
	}, nil
}

// EmbedDocument returns the memoized vector for a document ID, computing
// and storing it on a miss. Failures are returned to the caller and
// nothing is cached for the ID.
func (c *Cache) EmbedDocument(ctx context.Context, id, text string) ([]float32, error) {
	if vec, ok := c.entries.Get(id); ok {
		c.incCache("hit")
		return cloneVector(vec), nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", id, err)
	}

	c.entries.Add(id, cloneVector(result.Embedding))
	return result.Embedding, nil
}

// Purge drops every memoized vector. Called after each document cache refill.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len reports the number of memoized vectors.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cloneVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
