package router

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
	"github.com/fiscalia-cloud/fiscalia/internal/logger"
)

// Router classifies an incoming question and dispatches it to the
// responder registered for the resolved label.
type Router struct {
	registry   *domain.Registry
	classifier domain.Completer
}

// New creates a router over a responder registry. The classifier is the
// completion provider used for label resolution.
func New(registry *domain.Registry, classifier domain.Completer) *Router {
	return &Router{
		registry:   registry,
		classifier: classifier,
	}
}

// Route classifies the question and runs the matching responder.
func (r *Router) Route(ctx context.Context, question string) (domain.AgentResponse, error) {
	label := r.Classify(ctx, question)

	responder, ok := r.registry.Lookup(label)
	if !ok {
		// Classify only returns registered labels, so this means the
		// fallback itself was never registered. A wiring error.
		return domain.AgentResponse{}, fmt.Errorf("no responder registered for label %q", label)
	}

	logger.FromContext(ctx).Info("Question routed",
		zap.String("label", string(label)),
	)

	resp, err := responder.Respond(ctx, question)
	if err != nil {
		return domain.AgentResponse{}, fmt.Errorf("responder %s: %w", label, err)
	}
	resp.Agent = label
	return resp, nil
}
