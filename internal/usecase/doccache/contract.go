package doccache

import (
	"context"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

// Lister enumerates and fetches every document from the external store.
type Lister interface {
	ListAll(ctx context.Context) ([]domain.Document, error)
}

// Invalidator drops memoized per-document state after a snapshot refill.
type Invalidator interface {
	Purge()
}
