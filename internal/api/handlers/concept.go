package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/polymath/internal/retrieval"
	"github.com/Harshitk-cp/polymath/internal/store"
	"github.com/go-chi/chi/v5"
)

type ConceptHandler struct {
	pipeline *retrieval.Pipeline
}

func NewConceptHandler(pipeline *retrieval.Pipeline) *ConceptHandler {
	return &ConceptHandler{pipeline: pipeline}
}

func (h *ConceptHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "concept name is required")
		return
	}

	concept, err := h.pipeline.Concept(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "concept not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to resolve concept")
		return
	}

	writeJSON(w, http.StatusOK, concept)
}

func (h *ConceptHandler) Lineage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "concept name is required")
		return
	}

	lineage, err := h.pipeline.Lineage(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "concept not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to trace lineage")
		return
	}

	writeJSON(w, http.StatusOK, lineage)
}

type domainsResponse struct {
	Domains []string `json:"domains"`
	Count   int      `json:"count"`
}

func (h *ConceptHandler) Domains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.pipeline.Domains(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list domains")
		return
	}

	if domains == nil {
		domains = []string{}
	}

	writeJSON(w, http.StatusOK, domainsResponse{
		Domains: domains,
		Count:   len(domains),
	})
}
