package rank

import (
	"math"
	"sort"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

// Ranker scores documents against a query embedding and keeps the best
// candidates. Threshold and top-K come from configuration, enforced
// identically on every call.
type Ranker struct {
	threshold float64
	topK      int
}

// New creates a ranker with the given score threshold and top-K.
func New(threshold float64, topK int) *Ranker {
	return &Ranker{threshold: threshold, topK: topK}
}

// Rank scores every document with a non-nil embedding, drops scores below
// the threshold, sorts descending, and truncates to top-K. Ties keep the
// snapshot order (stable sort), never map iteration order. An empty
// result means "no relevant document", not an error.
func (r *Ranker) Rank(query []float32, docs []domain.Document) []domain.ScoredDocument {
	scored := make([]domain.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.Embedding == nil {
			continue // excluded after an embedding failure
		}
		score := Cosine(query, doc.Embedding)
		if score < r.threshold {
			continue
		}
		scored = append(scored, domain.ScoredDocument{Document: doc, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}

	return scored
}

// Cosine computes cosine similarity dot(a,b) / (‖a‖·‖b‖) in [-1, 1].
// A zero-magnitude vector (or a length mismatch) scores 0, never NaN.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
