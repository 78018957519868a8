package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/Harshitk-cp/polymath/internal/service"
	"github.com/go-chi/chi/v5"
)

type DialogueHandler struct {
	svc *service.SocraticService
}

func NewDialogueHandler(svc *service.SocraticService) *DialogueHandler {
	return &DialogueHandler{svc: svc}
}

type startDialogueRequest struct {
	UserID          string `json:"user_id"`
	Topic           string `json:"topic"`
	Domain          string `json:"domain,omitempty"`
	Focus           string `json:"focus,omitempty"`
	InitialPosition string `json:"initial_position,omitempty"`
}

func (h *DialogueHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startDialogueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == "" || req.Topic == "" {
		writeError(w, http.StatusBadRequest, "user_id and topic are required")
		return
	}
	if req.Focus != "" && !domain.ValidDialogueMode(req.Focus) {
		writeError(w, http.StatusBadRequest, "focus must be one of explore, challenge, synthesize")
		return
	}

	state, err := h.svc.StartDialogue(r.Context(), req.UserID, req.Topic, req.Domain, req.Focus, req.InitialPosition)
	if err != nil {
		handleDialogueError(w, err, "failed to start dialogue")
		return
	}

	writeJSON(w, http.StatusCreated, state)
}

type respondRequest struct {
	Response        string `json:"response"`
	ThinkingSeconds int    `json:"thinking_seconds,omitempty"`
}

func (h *DialogueHandler) Respond(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Response == "" {
		writeError(w, http.StatusBadRequest, "response is required")
		return
	}

	state, err := h.svc.ContinueDialogue(r.Context(), sessionID, req.Response, req.ThinkingSeconds)
	if err != nil {
		handleDialogueError(w, err, "failed to continue dialogue")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

type challengeRequest struct {
	Statement string `json:"statement"`
}

func (h *DialogueHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Statement == "" {
		writeError(w, http.StatusBadRequest, "statement is required")
		return
	}

	state, err := h.svc.ChallengeStatement(r.Context(), sessionID, req.Statement)
	if err != nil {
		handleDialogueError(w, err, "failed to challenge statement")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

type synthesizeResponse struct {
	State      *service.DialogueState `json:"state"`
	Summary    *domain.SessionSummary `json:"summary"`
	Suggestion string                 `json:"suggestion,omitempty"`
}

func (h *DialogueHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	state, summary, err := h.svc.SynthesizeDialogue(r.Context(), sessionID)
	if err != nil {
		handleDialogueError(w, err, "failed to synthesize dialogue")
		return
	}

	writeJSON(w, http.StatusOK, synthesizeResponse{
		State:      state,
		Summary:    summary,
		Suggestion: state.Suggestion,
	})
}

type hintRequest struct {
	SecondsStuck int `json:"seconds_stuck"`
	Attempts     int `json:"attempts"`
}

func (h *DialogueHandler) Hint(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	var req hintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decision, err := h.svc.Hint(r.Context(), sessionID, req.SecondsStuck, req.Attempts)
	if err != nil {
		handleDialogueError(w, err, "failed to evaluate hint")
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

func handleDialogueError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrSessionCompleted):
		writeError(w, http.StatusConflict, "session already completed")
	case errors.Is(err, service.ErrPersistFailed):
		writeError(w, http.StatusInternalServerError, "failed to persist session")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
