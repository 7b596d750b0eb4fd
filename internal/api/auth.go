package api

import (
	"errors"
	"net/http"

	"pepper/internal/auth"
	"pepper/internal/domain"
)

type userResponse struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Age    *int        `json:"age,omitempty"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		UserID: u.UserID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Age:    u.Age,
	}
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			Error(w, http.StatusConflict, err.Error())
		case errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrMissingName),
			errors.Is(err, auth.ErrInvalidAge):
			Error(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("signup failed", "error", err)
			Error(w, http.StatusInternalServerError, "signup failed")
		}
		return
	}

	h.logger.Info("user registered", "user_id", user.UserID, "role", user.Role)
	JSON(w, http.StatusCreated, toUserResponse(user))
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error("login failed", "error", err)
		Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	// A fresh prepared session is available for children immediately; no
	// session row exists until the first message.
	if user.IsChild() {
		h.manager.Get(user.UserID)
	}

	h.logger.Info("user logged in", "user_id", user.UserID, "role", user.Role)
	JSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}

// Logout handles POST /api/logout. The conversation context is discarded so
// the next login starts clean.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	h.manager.Drop(userID)
	h.logger.Info("user logged out", "user_id", userID)
	JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
