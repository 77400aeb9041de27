package synthesize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

type mockCompleter struct {
	answer     string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (m *mockCompleter) Complete(_ context.Context, system, user string) (string, error) {
	m.calls++
	m.lastSystem = system
	m.lastUser = user
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func rankedDocs() []domain.ScoredDocument {
	return []domain.ScoredDocument{
		{
			Document: domain.Document{
				ID:        "F1",
				Title:     "TVA",
				Content:   "La TVA est un impôt indirect sur la consommation.",
				SourceURL: "https://entreprendre.service-public.fr/tva",
			},
			Score: 0.91,
		},
		{
			Document: domain.Document{
				ID:        "F2",
				Title:     "Taux de TVA",
				Content:   "Le taux normal est de 20 %.",
				SourceURL: "https://impots.gouv.fr/taux-tva",
			},
			Score: 0.55,
		},
	}
}

func TestSynthesize_OK(t *testing.T) {
	completer := &mockCompleter{answer: "  La TVA est un impôt indirect. (Source : TVA)  "}
	svc := New(completer, 12000, 500)

	resp := svc.Synthesize(context.Background(), "C'est quoi la TVA ?", rankedDocs())

	if resp.Status != domain.StatusOK {
		t.Fatalf("expected status ok, got %s", resp.Status)
	}
	if resp.Method != domain.MethodSemantic {
		t.Errorf("expected semantic method, got %s", resp.Method)
	}
	if resp.Answer != "La TVA est un impôt indirect. (Source : TVA)" {
		t.Errorf("expected trimmed answer, got %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(resp.Sources))
	}
	if resp.Sources[0].Title != "TVA" || resp.Sources[0].Score != 0.91 {
		t.Errorf("unexpected first source: %+v", resp.Sources[0])
	}
	if resp.BestScore != 0.91 {
		t.Errorf("expected best score 0.91, got %v", resp.BestScore)
	}
	if want := (0.91 + 0.55) / 2; resp.AvgScore != want {
		t.Errorf("expected avg score %v, got %v", want, resp.AvgScore)
	}
}

func TestSynthesize_ContextContainsDocumentsAndQuestion(t *testing.T) {
	completer := &mockCompleter{answer: "ok"}
	svc := New(completer, 12000, 500)

	svc.Synthesize(context.Background(), "C'est quoi la TVA ?", rankedDocs())

	for _, want := range []string{
		"--- Document 1 ---",
		"--- Document 2 ---",
		"Titre: TVA",
		"https://impots.gouv.fr/taux-tva",
		"C'est quoi la TVA ?",
	} {
		if !strings.Contains(completer.lastUser, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
	if !strings.Contains(completer.lastSystem, "EXCLUSIVEMENT") {
		t.Error("expected grounding instruction in system prompt")
	}
}

func TestSynthesize_ContextBounded(t *testing.T) {
	completer := &mockCompleter{answer: "ok"}
	svc := New(completer, 100, 500)

	ranked := rankedDocs()
	ranked[0].Document.Content = strings.Repeat("très long contenu ", 500)

	svc.Synthesize(context.Background(), "q", ranked)

	// 100 chars of budget split across 2 docs plus block headers.
	if len([]rune(completer.lastUser)) > 600 {
		t.Fatalf("expected bounded context, prompt has %d runes", len([]rune(completer.lastUser)))
	}
}

func TestSynthesize_EmptyRankedIsNoMatch(t *testing.T) {
	completer := &mockCompleter{answer: "should not be called"}
	svc := New(completer, 12000, 500)

	resp := svc.Synthesize(context.Background(), "Question obscure", nil)

	if resp.Status != domain.StatusNoMatch {
		t.Fatalf("expected no-match status, got %s", resp.Status)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(resp.Sources))
	}
	if resp.Method != domain.MethodNone {
		t.Errorf("expected method %q, got %q", domain.MethodNone, resp.Method)
	}
	if !strings.Contains(resp.Answer, "pas trouvé d'information pertinente") {
		t.Errorf("expected explicit no-match message, got %q", resp.Answer)
	}
	if completer.calls != 0 {
		t.Error("completer must not be called with an empty ranking")
	}
}

func TestSynthesize_DegradesOnGenerationFailure(t *testing.T) {
	completer := &mockCompleter{err: errors.New("model timeout")}
	svc := New(completer, 12000, 500)

	resp := svc.Synthesize(context.Background(), "C'est quoi la TVA ?", rankedDocs())

	if resp.Status != domain.StatusDegraded {
		t.Fatalf("expected degraded status, got %s", resp.Status)
	}
	if resp.Method != domain.MethodSnippet {
		t.Errorf("expected snippet method, got %s", resp.Method)
	}
	if !strings.Contains(resp.Answer, "La TVA est un impôt indirect") {
		t.Errorf("expected snippet from top document, got %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "entreprendre.service-public.fr") {
		t.Errorf("expected source citation in degraded answer, got %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("expected sources kept on degradation, got %d", len(resp.Sources))
	}
	if resp.BestScore != 0.91 {
		t.Errorf("expected metrics kept on degradation, got best %v", resp.BestScore)
	}
}

func TestSynthesize_SnippetTruncatedByRunes(t *testing.T) {
	completer := &mockCompleter{err: errors.New("down")}
	svc := New(completer, 12000, 10)

	ranked := rankedDocs()
	ranked[0].Document.Content = "ééééééééééééééé" // 15 two-byte runes

	resp := svc.Synthesize(context.Background(), "q", ranked)

	if strings.Contains(resp.Answer, strings.Repeat("é", 11)) {
		t.Error("expected snippet cut at 10 runes")
	}
	if !strings.Contains(resp.Answer, strings.Repeat("é", 10)+"…") {
		t.Errorf("expected ellipsis after truncation, got %q", resp.Answer)
	}
}
