package synthesize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
	"github.com/fiscalia-cloud/fiscalia/internal/logger"
)

// Service builds a bounded documentary context from ranked documents and
// asks the completion provider for a cited answer. A generation failure
// degrades to a snippet of the top document instead of failing the request.
type Service struct {
	completer       domain.Completer
	maxContextChars int
	snippetChars    int
}

// New creates a synthesizer.
func New(completer domain.Completer, maxContextChars, snippetChars int) *Service {
	return &Service{
		completer:       completer,
		maxContextChars: maxContextChars,
		snippetChars:    snippetChars,
	}
}

// Synthesize produces the agent response for a question and its ranked
// documents. It never returns an error: every failure mode documented for
// this stage maps to a response status.
func (s *Service) Synthesize(
	ctx context.Context, question string, ranked []domain.ScoredDocument,
) domain.AgentResponse {
	if len(ranked) == 0 {
		return domain.AgentResponse{
			Question: question,
			Answer:   noMatchMessage,
			Method:   domain.MethodNone,
			Status:   domain.StatusNoMatch,
		}
	}

	sources := make([]domain.Source, len(ranked))
	var sum float64
	for i, sd := range ranked {
		sources[i] = domain.Source{
			Title: sd.Document.Title,
			URL:   sd.Document.SourceURL,
			Score: sd.Score,
		}
		sum += sd.Score
	}
	avg := sum / float64(len(ranked))
	best := ranked[0].Score

	docContext := s.buildContext(ranked)
	user := fmt.Sprintf("CONTEXTE DOCUMENTAIRE :\n%s\nQUESTION DE L'UTILISATEUR :\n%s", docContext, question)

	answer, err := s.completer.Complete(ctx, systemPrompt, user)
	if err != nil {
		logger.FromContext(ctx).Warn("Generation failed, degrading to snippet",
			zap.String("top_document", ranked[0].Document.ID),
			zap.Error(err),
		)
		return domain.AgentResponse{
			Question:  question,
			Answer:    s.snippetAnswer(ranked[0].Document),
			Sources:   sources,
			Method:    domain.MethodSnippet,
			AvgScore:  avg,
			BestScore: best,
			Status:    domain.StatusDegraded,
		}
	}

	return domain.AgentResponse{
		Question:  question,
		Answer:    strings.TrimSpace(answer),
		Sources:   sources,
		Method:    domain.MethodSemantic,
		AvgScore:  avg,
		BestScore: best,
		Status:    domain.StatusOK,
	}
}

// buildContext renders the ranked documents as numbered blocks, splitting
// the total character budget evenly so no single document starves the rest.
func (s *Service) buildContext(ranked []domain.ScoredDocument) string {
	perDoc := s.maxContextChars / len(ranked)

	var b strings.Builder
	for i, sd := range ranked {
		doc := sd.Document
		fmt.Fprintf(&b, "--- Document %d ---\n", i+1)
		fmt.Fprintf(&b, "Titre: %s\n", doc.Title)
		fmt.Fprintf(&b, "Source: %s\n", doc.SourceURL)
		fmt.Fprintf(&b, "Contenu:\n%s\n\n", truncateRunes(doc.Content, perDoc))
	}
	return b.String()
}

// snippetAnswer builds the degraded answer from the top document.
func (s *Service) snippetAnswer(doc domain.Document) string {
	snippet := truncateRunes(doc.Content, s.snippetChars)
	return fmt.Sprintf("%s\n\n%s\n\n(Source : %s — %s)", degradedPreamble, snippet, doc.Title, doc.SourceURL)
}

// truncateRunes cuts a string to at most n runes. Rune-based so accented
// French text is never split mid-character.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
