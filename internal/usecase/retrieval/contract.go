package retrieval

import (
	"context"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

// DocumentSource serves the current document snapshot.
type DocumentSource interface {
	Documents(ctx context.Context) ([]domain.Document, error)
}

// DocumentEmbedder returns the memoized vector for a document.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, id, text string) ([]float32, error)
}

// Ranker orders candidate documents against a query embedding.
type Ranker interface {
	Rank(query []float32, docs []domain.Document) []domain.ScoredDocument
}

// Synthesizer composes the final answer from ranked documents.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, ranked []domain.ScoredDocument) domain.AgentResponse
}
