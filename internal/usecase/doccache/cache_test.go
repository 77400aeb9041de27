package doccache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

type mockLister struct {
	docs  []domain.Document
	err   error
	calls int
}

func (m *mockLister) ListAll(_ context.Context) ([]domain.Document, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.docs, nil
}

type mockInvalidator struct {
	purges int
}

func (m *mockInvalidator) Purge() { m.purges++ }

func docSet(ids ...string) []domain.Document {
	docs := make([]domain.Document, len(ids))
	for i, id := range ids {
		docs[i] = domain.Document{ID: id, Title: "doc " + id}
	}
	return docs
}

func TestDocuments_LazyFill(t *testing.T) {
	store := &mockLister{docs: docSet("F1", "F2")}
	cache := New(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	docs, err := cache.Documents(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if store.calls != 1 {
		t.Fatalf("expected 1 load, got %d", store.calls)
	}

	// Second read within TTL serves the snapshot without reloading.
	if _, err := cache.Documents(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected snapshot reuse, got %d loads", store.calls)
	}
}

func TestDocuments_RefillAfterTTL(t *testing.T) {
	store := &mockLister{docs: docSet("F1")}
	now := time.Now()
	cache := New(store, time.Hour, zap.NewNop()).WithClock(func() time.Time { return now })
	ctx := context.Background()

	if _, err := cache.Documents(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(time.Hour + time.Second)
	store.docs = docSet("F1", "F3")

	docs, err := cache.Documents(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected refreshed snapshot with 2 documents, got %d", len(docs))
	}
	if store.calls != 2 {
		t.Fatalf("expected 2 loads, got %d", store.calls)
	}
}

func TestDocuments_StaleButValidBeforeTTL(t *testing.T) {
	// A document deleted from the store keeps being served until the
	// snapshot expires.
	store := &mockLister{docs: docSet("F1", "F2")}
	now := time.Now()
	cache := New(store, time.Hour, zap.NewNop()).WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, _ = cache.Documents(ctx)
	store.docs = docSet("F1") // F2 deleted upstream

	now = now.Add(time.Minute)
	docs, _ := cache.Documents(ctx)
	if len(docs) != 2 {
		t.Fatalf("expected stale-but-valid snapshot with 2 documents, got %d", len(docs))
	}

	now = now.Add(time.Hour)
	docs, _ = cache.Documents(ctx)
	if len(docs) != 1 || docs[0].ID != "F1" {
		t.Fatalf("expected post-TTL snapshot without F2, got %+v", docs)
	}
}

func TestDocuments_StaleIfError(t *testing.T) {
	store := &mockLister{docs: docSet("F1")}
	now := time.Now()
	cache := New(store, time.Hour, zap.NewNop()).WithClock(func() time.Time { return now })
	ctx := context.Background()

	if _, err := cache.Documents(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Hour)
	store.err = errors.New("bucket unreachable")

	docs, err := cache.Documents(ctx)
	if err != nil {
		t.Fatalf("expected stale snapshot, got error: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "F1" {
		t.Fatalf("expected stale snapshot, got %+v", docs)
	}
}

func TestDocuments_ErrorWithoutSnapshot(t *testing.T) {
	store := &mockLister{err: errors.New("bucket unreachable")}
	cache := New(store, time.Hour, zap.NewNop())

	_, err := cache.Documents(context.Background())
	if err == nil {
		t.Fatal("expected retrieval error with no snapshot to fall back on")
	}
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Errorf("expected ErrRetrieval, got %v", err)
	}
}

func TestDocuments_PurgesInvalidatorOnRefill(t *testing.T) {
	store := &mockLister{docs: docSet("F1")}
	inv := &mockInvalidator{}
	now := time.Now()
	cache := New(store, time.Hour, zap.NewNop()).
		WithInvalidator(inv).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, _ = cache.Documents(ctx)
	if inv.purges != 1 {
		t.Fatalf("expected 1 purge after initial fill, got %d", inv.purges)
	}

	// Within TTL: no reload, no purge.
	_, _ = cache.Documents(ctx)
	if inv.purges != 1 {
		t.Fatalf("expected no purge on snapshot reuse, got %d", inv.purges)
	}

	now = now.Add(2 * time.Hour)
	_, _ = cache.Documents(ctx)
	if inv.purges != 2 {
		t.Fatalf("expected purge after refill, got %d", inv.purges)
	}

	// Failed reload serves stale and must NOT purge memoized embeddings.
	now = now.Add(2 * time.Hour)
	store.err = errors.New("down")
	_, _ = cache.Documents(ctx)
	if inv.purges != 2 {
		t.Fatalf("expected no purge on failed reload, got %d", inv.purges)
	}
}

func TestDocuments_DedupesIDsKeepingFirst(t *testing.T) {
	store := &mockLister{docs: []domain.Document{
		{ID: "F1", Title: "first"},
		{ID: "F2", Title: "second"},
		{ID: "F1", Title: "shadowed"},
	}}
	cache := New(store, time.Hour, zap.NewNop())

	docs, err := cache.Documents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 unique documents, got %d", len(docs))
	}
	if docs[0].Title != "first" {
		t.Errorf("expected first occurrence kept, got %q", docs[0].Title)
	}
}

// sharedLister is safe for concurrent ListAll calls and hands every
// caller its own copy of the document set, like the real store does.
type sharedLister struct {
	mu    sync.Mutex
	docs  []domain.Document
	calls int
}

func (m *sharedLister) ListAll(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	m.calls++
	docs := append([]domain.Document(nil), m.docs...)
	m.mu.Unlock()
	return docs, nil
}

func (m *sharedLister) setDocs(docs []domain.Document) {
	m.mu.Lock()
	m.docs = docs
	m.mu.Unlock()
}

type sharedInvalidator struct {
	purges atomic.Int64
}

func (m *sharedInvalidator) Purge() { m.purges.Add(1) }

func TestDocuments_ConcurrentRefill(t *testing.T) {
	store := &sharedLister{docs: docSet("F1", "F2")}
	inv := &sharedInvalidator{}

	base := time.Unix(1700000000, 0)
	var offset atomic.Int64
	cache := New(store, time.Hour, zap.NewNop()).
		WithInvalidator(inv).
		WithClock(func() time.Time { return base.Add(time.Duration(offset.Load())) })
	ctx := context.Background()

	if _, err := cache.Documents(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Expire the snapshot and grow the set, then hammer the cache from
	// many goroutines at once. Some race each other through the refill,
	// later reads race the pointer swap and the invalidator purge.
	store.setDocs(docSet("F1", "F2", "F3"))
	offset.Store(int64(2 * time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				docs, err := cache.Documents(ctx)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				// Every reader must observe a complete snapshot: the
				// old set or the new one, never a partial fill.
				if len(docs) != 2 && len(docs) != 3 {
					t.Errorf("reader observed partial snapshot with %d documents", len(docs))
					return
				}
				seen := make(map[string]struct{}, len(docs))
				for _, d := range docs {
					seen[d.ID] = struct{}{}
				}
				if len(seen) != len(docs) {
					t.Errorf("reader observed duplicate IDs in snapshot: %+v", docs)
					return
				}
			}
		}()
	}
	wg.Wait()

	// Last completed load won: a settled read serves the new set.
	docs, err := cache.Documents(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected settled snapshot with 3 documents, got %d", len(docs))
	}

	// One purge per completed load, none lost or duplicated.
	store.mu.Lock()
	loads := store.calls
	store.mu.Unlock()
	if got := int(inv.purges.Load()); got != loads {
		t.Errorf("expected %d purges for %d loads, got %d", loads, loads, got)
	}
}

func TestAge(t *testing.T) {
	store := &mockLister{docs: docSet("F1")}
	now := time.Now()
	cache := New(store, time.Hour, zap.NewNop()).WithClock(func() time.Time { return now })

	if got := cache.Age(); got != 0 {
		t.Fatalf("expected zero age with no snapshot, got %v", got)
	}

	if _, err := cache.Documents(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(42 * time.Minute)
	if got := cache.Age(); got != 42*time.Minute {
		t.Fatalf("expected 42m snapshot age, got %v", got)
	}
}

func TestDocuments_ReloadEqualSetRegardlessOfOrder(t *testing.T) {
	store := &mockLister{docs: docSet("F1", "F2", "F3")}
	now := time.Now()
	cache := New(store, time.Hour, zap.NewNop()).WithClock(func() time.Time { return now })
	ctx := context.Background()

	first, _ := cache.Documents(ctx)

	now = now.Add(2 * time.Hour)
	store.docs = docSet("F3", "F1", "F2") // same set, different enumeration order

	second, _ := cache.Documents(ctx)
	if len(first) != len(second) {
		t.Fatalf("expected equal set sizes, got %d and %d", len(first), len(second))
	}
	byID := make(map[string]domain.Document, len(second))
	for _, d := range second {
		byID[d.ID] = d
	}
	for _, d := range first {
		got, ok := byID[d.ID]
		if !ok {
			t.Fatalf("document %s missing after reload", d.ID)
		}
		if got.Title != d.Title {
			t.Errorf("document %s content changed unexpectedly", d.ID)
		}
	}
}
