package router

import (
	"context"
	"fmt"

	"github.com/fiscalia-cloud/fiscalia/internal/domain"
)

// Unavailable is a placeholder responder for labels whose specialized
// agent is not deployed yet. It answers with a canned message so routing
// stays total over the label set.
type Unavailable struct {
	label       domain.Label
	description string
}

// NewUnavailable creates a placeholder responder for a label. The
// description names the domain in the canned answer, e.g. "comptabilité".
func NewUnavailable(label domain.Label, description string) *Unavailable {
	return &Unavailable{label: label, description: description}
}

// Respond implements domain.Responder.
func (u *Unavailable) Respond(_ context.Context, question string) (domain.AgentResponse, error) {
	return domain.AgentResponse{
		Question: question,
		Answer: fmt.Sprintf(
			"L'agent spécialisé en %s n'est pas encore disponible. Votre question a bien été identifiée comme relevant de ce domaine ; ce service sera proposé prochainement.",
			u.description,
		),
		Agent:  u.label,
		Method: domain.MethodNone,
		Status: domain.StatusOK,
	}, nil
}
