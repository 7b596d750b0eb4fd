package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pepper/internal/chat"
)

// ListChildren handles GET /api/staff/children.
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.repo.ListChildren(r.Context())
	if err != nil {
		h.logger.Error("failed to list children", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list children")
		return
	}

	out := make([]userResponse, 0, len(children))
	for _, c := range children {
		out = append(out, toUserResponse(c))
	}
	JSON(w, http.StatusOK, map[string]any{"children": out})
}

// ChildSessions handles GET /api/staff/children/{userID}/sessions.
func (h *Handler) ChildSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load user", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil || !user.IsChild() {
		Error(w, http.StatusNotFound, "child not found")
		return
	}

	sessions, err := h.ledger.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list sessions", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// SessionMessages handles GET /api/staff/sessions/{sessionID}/messages: the
// persisted transcript of any session, for review.
func (h *Handler) SessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load session", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	msgs, err := h.repo.ListSessionMessages(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load messages", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"session":  session,
		"messages": msgs,
	})
}

// DeleteSession handles DELETE /api/staff/sessions/{sessionID}: remove a
// session and its messages, reporting how many were deleted.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	deleted, err := h.ledger.Delete(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("failed to delete session", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"session_id":       sessionID,
		"messages_deleted": deleted,
	})
}
