package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/Harshitk-cp/polymath/internal/service"
	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	sessions   *service.SessionManager
	difficulty *service.DifficultyEngine
}

func NewSessionHandler(sessions *service.SessionManager, difficulty *service.DifficultyEngine) *SessionHandler {
	return &SessionHandler{sessions: sessions, difficulty: difficulty}
}

type listSessionsResponse struct {
	Sessions []domain.SessionSummary `json:"sessions"`
	Count    int                     `json:"count"`
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	status := domain.SessionStatus(r.URL.Query().Get("status"))

	if status != "" && !domain.ValidSessionStatus(string(status)) {
		writeError(w, http.StatusBadRequest, "invalid status parameter")
		return
	}

	summaries, err := h.sessions.List(r.Context(), userID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	if summaries == nil {
		summaries = []domain.SessionSummary{}
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{
		Sessions: summaries,
		Count:    len(summaries),
	})
}

func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSessionError(w, err, "failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleSessionError(w, err, "failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Pause(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSessionError(w, err, "failed to pause session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSessionError(w, err, "failed to resume session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// Export renders a session as JSON or a markdown narrative, selected by
// the format query parameter.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := r.URL.Query().Get("format")

	switch format {
	case "", "json":
		data, err := h.sessions.ExportJSON(r.Context(), id)
		if err != nil {
			handleSessionError(w, err, "failed to export session")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "markdown":
		md, err := h.sessions.ExportMarkdown(r.Context(), id)
		if err != nil {
			handleSessionError(w, err, "failed to export session")
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(md))
	default:
		writeError(w, http.StatusBadRequest, "invalid format parameter")
	}
}

type progressResponse struct {
	*domain.UserProgress
	Profile     *domain.UserProfile       `json:"profile"`
	Performance domain.PerformanceSummary `json:"performance"`
	ZPD         domain.ZPDRange           `json:"zpd"`
}

func (h *SessionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	progress, err := h.sessions.Progress(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute progress")
		return
	}

	writeJSON(w, http.StatusOK, progressResponse{
		UserProgress: progress,
		Profile:      h.difficulty.Profile(userID),
		Performance:  h.difficulty.Summary(userID),
		ZPD:          h.difficulty.ZPD(userID),
	})
}

func handleSessionError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, service.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeError(w, http.StatusInternalServerError, fallback)
}
