package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/polymath/internal/service"
	"github.com/Harshitk-cp/polymath/internal/store"
)

type FusionHandler struct {
	svc *service.FusionService
}

func NewFusionHandler(svc *service.FusionService) *FusionHandler {
	return &FusionHandler{svc: svc}
}

type suggestFusionRequest struct {
	ConceptA string `json:"concept_a"`
	ConceptB string `json:"concept_b"`
}

func (h *FusionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestFusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ConceptA == "" || req.ConceptB == "" {
		writeError(w, http.StatusBadRequest, "concept_a and concept_b are required")
		return
	}

	suggestion, err := h.svc.Suggest(r.Context(), req.ConceptA, req.ConceptB)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "concept not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to suggest fusion")
		return
	}

	writeJSON(w, http.StatusOK, suggestion)
}
