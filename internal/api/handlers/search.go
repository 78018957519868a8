package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/Harshitk-cp/polymath/internal/retrieval"
)

type SearchHandler struct {
	pipeline *retrieval.Pipeline
}

func NewSearchHandler(pipeline *retrieval.Pipeline) *SearchHandler {
	return &SearchHandler{pipeline: pipeline}
}

type searchRequest struct {
	Query  string `json:"query"`
	Domain string `json:"domain,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type searchResponse struct {
	Results []domain.ScoredConcept `json:"results"`
	Query   string                 `json:"query"`
	Domain  string                 `json:"domain,omitempty"`
	Count   int                    `json:"count"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	resolved := ""
	if req.Domain != "" {
		resolved = h.pipeline.ResolveDomain(r.Context(), req.Domain)
	}

	results, err := h.pipeline.Search(r.Context(), req.Query, req.Domain, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	if results == nil {
		results = []domain.ScoredConcept{}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results: results,
		Query:   req.Query,
		Domain:  resolved,
		Count:   len(results),
	})
}
