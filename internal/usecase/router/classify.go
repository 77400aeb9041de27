package router

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
	"github.com/fiscalia-cloud/fiscalia/internal/logger"
	"github.com/fiscalia-cloud/fiscalia/internal/metrics"
)

const classifySystemPrompt = `Tu es un routeur de questions pour un assistant destiné aux PME françaises.

Classifie la question de l'utilisateur dans EXACTEMENT une des catégories suivantes :
%LABELS%

RÈGLES :
1. Réponds UNIQUEMENT par le nom de la catégorie, en minuscules, sans ponctuation ni explication.
2. En cas de doute, choisis la catégorie la plus proche du sujet principal de la question.`

// Classify resolves a question to a registered label. Every failure mode
// resolves to the registry fallback: a provider error, an answer that is
// not a label, or a label nothing is registered under. Classification is
// advisory and must never fail a request.
func (r *Router) Classify(ctx context.Context, question string) domain.Label {
	system := strings.Replace(classifySystemPrompt, "%LABELS%", r.labelList(), 1)

	raw, err := r.classifier.Complete(ctx, system, question)
	if err != nil {
		logger.FromContext(ctx).Warn("Classification failed, using fallback label",
			zap.String("fallback", string(r.registry.Fallback())),
			zap.Error(err),
		)
		return r.fallbackLabel()
	}

	label := domain.Label(normalizeLabel(raw))
	if _, ok := r.registry.Lookup(label); !ok {
		logger.FromContext(ctx).Warn("Classifier returned an unregistered label, using fallback",
			zap.String("raw", raw),
			zap.String("fallback", string(r.registry.Fallback())),
		)
		return r.fallbackLabel()
	}

	metrics.ClassificationTotal.WithLabelValues(string(label), "false").Inc()
	return label
}

func (r *Router) fallbackLabel() domain.Label {
	fallback := r.registry.Fallback()
	metrics.ClassificationTotal.WithLabelValues(string(fallback), "true").Inc()
	return fallback
}

func (r *Router) labelList() string {
	labels := r.registry.Labels()
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = "- " + string(l)
	}
	return strings.Join(parts, "\n")
}

// normalizeLabel strips the decoration models wrap answers in: case,
// surrounding whitespace, quotes and trailing punctuation.
func normalizeLabel(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'`.,;:! \n")
	// Keep only the first word if the model elaborated anyway.
	if i := strings.IndexAny(s, " \n\t"); i >= 0 {
		s = s[:i]
	}
	return s
}
