package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pepper/internal/auth"
	"pepper/internal/chat"
)

// ListSessions handles GET /api/sessions: the caller's past sessions,
// most recent first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	sessions, err := h.ledger.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list sessions", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// NewSession handles POST /api/sessions/new: abandon the active session and
// prepare a fresh one. Nothing is written until the first message.
func (h *Handler) NewSession(w http.ResponseWriter, r *http.Request) {
	us := h.manager.Get(auth.UserIDFromContext(r.Context()))
	sessionID := h.ledger.StartFresh(us)
	JSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"phase":      us.Phase().String(),
	})
}

// SwitchSession handles POST /api/sessions/{sessionID}/switch: resume a past
// session, loading its transcript.
func (h *Handler) SwitchSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	us := h.manager.Get(auth.UserIDFromContext(r.Context()))

	if err := h.ledger.SwitchTo(r.Context(), us, sessionID); err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("failed to switch session", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to switch session")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   us.Transcript(),
	})
}
