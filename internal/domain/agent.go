package domain

import "context"

// Label identifies a specialized responder. The set of labels is closed:
// classification always resolves to exactly one registered label.
type Label string

// Registered labels.
const (
	LabelFiscalite    Label = "fiscalite"
	LabelComptabilite Label = "comptabilite"
	LabelRH           Label = "ressources_humaines"
	LabelJuridique    Label = "juridique"
)

// Status marks how an agent response was produced.
type Status string

const (
	// StatusOK is a normally synthesized answer.
	StatusOK Status = "ok"
	// StatusDegraded is a fallback answer built from a document snippet
	// after a generation failure.
	StatusDegraded Status = "degrade"
	// StatusNoMatch means no document passed the similarity threshold.
	StatusNoMatch Status = "aucun_document"
)

// Retrieval method tags reported in responses.
const (
	MethodSemantic = "recherche_semantique"
	MethodSnippet  = "extrait_document"
	MethodNone     = "aucune"
)

// AgentResponse is the answer produced by a responder.
type AgentResponse struct {
	Question  string
	Answer    string
	Agent     Label
	Sources   []Source
	Method    string
	AvgScore  float64
	BestScore float64
	Status    Status
}

// Responder answers a question for one label.
type Responder interface {
	Respond(ctx context.Context, question string) (AgentResponse, error)
}

// Registry is the closed label → responder mapping with an explicit
// default. Unknown labels never synthesize a new route.
type Registry struct {
	responders map[Label]Responder
	order      []Label
	fallback   Label
}

// NewRegistry creates a registry with the given default label.
func NewRegistry(fallback Label) *Registry {
	return &Registry{
		responders: make(map[Label]Responder),
		fallback:   fallback,
	}
}

// Register binds a responder to a label. Re-registering replaces the binding.
func (r *Registry) Register(label Label, resp Responder) {
	if _, exists := r.responders[label]; !exists {
		r.order = append(r.order, label)
	}
	r.responders[label] = resp
}

// Lookup returns the responder for a label.
func (r *Registry) Lookup(label Label) (Responder, bool) {
	resp, ok := r.responders[label]
	return resp, ok
}

// Labels returns registered labels in registration order.
func (r *Registry) Labels() []Label {
	out := make([]Label, len(r.order))
	copy(out, r.order)
	return out
}

// Fallback returns the default label used when classification cannot
// resolve a registered one.
func (r *Registry) Fallback() Label {
	return r.fallback
}
