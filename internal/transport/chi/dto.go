package chi

import "github.com/fiscalia-cloud/fiscalia/internal/domain"

// questionRequest is the POST /question body.
type questionRequest struct {
	Question string `json:"question"`
}

// sourceDTO is one cited document in the wire response.
type sourceDTO struct {
	Title string  `json:"titre"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// answerDTO is the POST /question response. Field names are the French
// wire contract consumed by existing clients.
type answerDTO struct {
	Question  string      `json:"question"`
	Agent     string      `json:"agent_utilise"`
	Answer    string      `json:"reponse"`
	Sources   []sourceDTO `json:"sources"`
	Method    string      `json:"methode_recherche"`
	AvgScore  float64     `json:"score_moyen"`
	BestScore float64     `json:"meilleur_score"`
	Status    string      `json:"statut"`
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used in errorResponse.
const (
	codeBadRequest    = "bad_request"
	codeUpstreamError = "upstream_error"
	codeInternalError = "internal_error"
)

func answerToDTO(resp domain.AgentResponse) answerDTO {
	sources := make([]sourceDTO, len(resp.Sources))
	for i, s := range resp.Sources {
		sources[i] = sourceDTO{
			Title: s.Title,
			URL:   s.URL,
			Score: s.Score,
		}
	}
	return answerDTO{
		Question:  resp.Question,
		Agent:     string(resp.Agent),
		Answer:    resp.Answer,
		Sources:   sources,
		Method:    resp.Method,
		AvgScore:  resp.AvgScore,
		BestScore: resp.BestScore,
		Status:    string(resp.Status),
	}
}
