package domain

import "time"

// Document is one knowledge-base entry loaded from the document store.
// Identity is the ID; a reload may carry new content under the same ID,
// which is treated as a new version, never merged.
type Document struct {
	ID        string
	Title     string
	Content   string
	SourceURL string
	Hostname  string
	Size      int64
	Embedding []float32 // memoized vector, nil until computed
	CachedAt  time.Time
}

// ScoredDocument pairs a document with its similarity score in [-1, 1].
type ScoredDocument struct {
	Document Document
	Score    float64
}

// Source is a cited source in an agent response.
type Source struct {
	Title string
	URL   string
	Score float64
}
