package domain

import "errors"

var (
	// ErrRetrieval signals that the document store is unreachable and no
	// stale snapshot exists to serve instead.
	ErrRetrieval = errors.New("document retrieval failed")
	// ErrQueryEmbedding signals that the question itself could not be
	// embedded. There is no safe fallback for this stage.
	ErrQueryEmbedding = errors.New("query embedding failed")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationProvider signals a completion provider failure.
	// Recovered locally via snippet fallback, never surfaced to callers.
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrEmptyQuestion signals a missing or blank question.
	ErrEmptyQuestion = errors.New("empty question")
)
