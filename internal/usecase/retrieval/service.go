package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
	"github.com/fiscalia-cloud/fiscalia/internal/logger"
	"github.com/fiscalia-cloud/fiscalia/internal/metrics"
)

// Service is the semantic retrieval responder for the fiscalite label:
// snapshot read, query embedding, bounded concurrent document embedding,
// ranking, synthesis.
type Service struct {
	docs       DocumentSource
	queryEmbed domain.Embedder
	docEmbed   DocumentEmbedder
	ranker     Ranker
	synth      Synthesizer

	titleRepeat   int
	contentPrefix int
	workers       int
}

// Config holds the document embedding input shape and concurrency limit.
type Config struct {
	TitleRepeat   int
	ContentPrefix int
	Workers       int
}

// New creates the retrieval responder.
func New(
	docs DocumentSource,
	queryEmbed domain.Embedder,
	docEmbed DocumentEmbedder,
	ranker Ranker,
	synth Synthesizer,
	cfg Config,
) *Service {
	return &Service{
		docs:          docs,
		queryEmbed:    queryEmbed,
		docEmbed:      docEmbed,
		ranker:        ranker,
		synth:         synth,
		titleRepeat:   cfg.TitleRepeat,
		contentPrefix: cfg.ContentPrefix,
		workers:       cfg.Workers,
	}
}

// Respond implements domain.Responder.
func (s *Service) Respond(ctx context.Context, question string) (domain.AgentResponse, error) {
	if strings.TrimSpace(question) == "" {
		return domain.AgentResponse{}, domain.ErrEmptyQuestion
	}

	docs, err := s.docs.Documents(ctx)
	if err != nil {
		return domain.AgentResponse{}, fmt.Errorf("document snapshot: %w", err)
	}

	// Query embedding is synchronous and fatal: without it there is
	// nothing to rank against.
	queryResult, err := s.queryEmbed.Embed(ctx, question)
	if err != nil {
		return domain.AgentResponse{}, fmt.Errorf("embed question: %s: %w", err, domain.ErrQueryEmbedding)
	}

	candidates, excluded := s.embedAll(ctx, docs)
	if excluded > 0 {
		metrics.DocumentsExcludedTotal.Add(float64(excluded))
		logger.FromContext(ctx).Warn("Documents excluded from ranking after embedding failures",
			zap.Int("excluded", excluded),
			zap.Int("total", len(docs)),
		)
	}

	ranked := s.ranker.Rank(queryResult.Embedding, candidates)

	resp := s.synth.Synthesize(ctx, question, ranked)
	resp.Agent = domain.LabelFiscalite
	return resp, nil
}

// embedAll attaches a vector to every document, computing misses
// concurrently under the worker limit. It waits for every outstanding
// computation before returning: ranking never runs against a partial,
// still-loading set. A failing document stays vector-less and is
// excluded from ranking for this request only.
func (s *Service) embedAll(ctx context.Context, docs []domain.Document) ([]domain.Document, int) {
	out := make([]domain.Document, len(docs))
	copy(out, docs)

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	var excluded atomic.Int64

	for i := range out {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			vec, err := s.docEmbed.EmbedDocument(ctx, out[i].ID, s.embedInput(out[i]))
			if err != nil {
				excluded.Add(1)
				logger.FromContext(ctx).Warn("Skipping document after embedding failure",
					zap.String("id", out[i].ID),
					zap.Error(err),
				)
				return
			}
			out[i].Embedding = vec
		}(i)
	}
	wg.Wait()

	return out, int(excluded.Load())
}

// embedInput builds the text fed to the embedding model: the title
// repeated titleRepeat times, then the first contentPrefix characters of
// the content. The repetition biases similarity toward title relevance.
func (s *Service) embedInput(doc domain.Document) string {
	var b strings.Builder
	for i := 0; i < s.titleRepeat; i++ {
		b.WriteString(doc.Title)
		b.WriteString(" ")
	}
	b.WriteString(prefixRunes(doc.Content, s.contentPrefix))
	return b.String()
}

func prefixRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
