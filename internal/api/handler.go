// Package api provides the HTTP handlers for the Pepper chat service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"pepper/internal/auth"
	"pepper/internal/chat"
	"pepper/internal/store"
)

// Handler carries the dependencies shared by all endpoints.
type Handler struct {
	repo         store.Repository
	authService  *auth.Service
	manager      *chat.Manager
	ledger       *chat.Ledger
	orchestrator *chat.Orchestrator
	logger       *slog.Logger
}

// NewHandler creates a Handler with common dependencies.
func NewHandler(repo store.Repository, authService *auth.Service, manager *chat.Manager, ledger *chat.Ledger, orchestrator *chat.Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:         repo,
		authService:  authService,
		manager:      manager,
		ledger:       ledger,
		orchestrator: orchestrator,
		logger:       logger.With("module", "api"),
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decode(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
