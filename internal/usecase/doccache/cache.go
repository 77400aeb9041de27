package doccache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
	"github.com/fiscalia-cloud/fiscalia/internal/metrics"
)

// snapshot is an immutable view of the document set. Replaced wholesale,
// never mutated in place, so readers never observe a partial fill.
type snapshot struct {
	docs     []domain.Document
	loadedAt time.Time
}

// Cache is the time-boxed in-memory snapshot of the document store.
// Concurrent refills are tolerated: the last completed load wins via a
// single atomic pointer swap, and reads never block on a loader.
type Cache struct {
	store       Lister
	invalidator Invalidator
	ttl         time.Duration
	snap        atomic.Pointer[snapshot]
	now         func() time.Time
	logger      *zap.Logger
}

// New creates a document cache over the given store.
func New(store Lister, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// WithInvalidator registers a hook purged after every successful refill.
func (c *Cache) WithInvalidator(inv Invalidator) *Cache {
	c.invalidator = inv
	return c
}

// WithClock overrides the time source (tests).
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Documents returns the current snapshot, refilling it lazily when empty
// or older than the TTL. On a failed refill the last snapshot is served
// stale; with no snapshot at all the retrieval error is surfaced.
// The returned slice is shared and must be treated as read-only.
func (c *Cache) Documents(ctx context.Context) ([]domain.Document, error) {
	cur := c.snap.Load()
	if cur != nil && c.now().Sub(cur.loadedAt) <= c.ttl {
		return cur.docs, nil
	}

	docs, err := c.store.ListAll(ctx)
	if err != nil {
		if cur != nil {
			metrics.DocumentCacheRefreshTotal.WithLabelValues("stale").Inc()
			c.logger.Warn("Document reload failed, serving stale snapshot",
				zap.Int("documents", len(cur.docs)),
				zap.Duration("age", c.Age()),
				zap.Error(err),
			)
			return cur.docs, nil
		}
		metrics.DocumentCacheRefreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load documents: %s: %w", err, domain.ErrRetrieval)
	}

	docs = dedupeByID(docs, c.logger)

	next := &snapshot{docs: docs, loadedAt: c.now()}
	c.snap.Store(next)

	if c.invalidator != nil {
		c.invalidator.Purge()
	}

	metrics.DocumentCacheRefreshTotal.WithLabelValues("ok").Inc()
	c.logger.Info("Document snapshot refilled", zap.Int("documents", len(docs)))

	return docs, nil
}

// Age reports how old the current snapshot is. Zero when empty.
func (c *Cache) Age() time.Duration {
	cur := c.snap.Load()
	if cur == nil {
		return 0
	}
	return c.now().Sub(cur.loadedAt)
}

// dedupeByID keeps the first occurrence of each document ID so snapshot
// order stays deterministic for ranking tie-breaks.
func dedupeByID(docs []domain.Document, logger *zap.Logger) []domain.Document {
	seen := make(map[string]struct{}, len(docs))
	out := docs[:0]
	for _, d := range docs {
		if _, dup := seen[d.ID]; dup {
			logger.Warn("Duplicate document ID in store, keeping first", zap.String("id", d.ID))
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out
}
