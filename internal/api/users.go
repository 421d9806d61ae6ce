package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// CreateUser registers a new user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user domain.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := user.Validate(); err != nil {
		writeError(w, err)
		return
	}

	user.ID = uuid.New().String()
	user.CreatedAt = time.Now().UTC()

	if err := h.repo.SaveUser(r.Context(), &user); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("user created", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, user)
}

// GetUser retrieves a user by ID.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.repo.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ListUsers retrieves all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// DeleteUser removes a user.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if err := h.repo.DeleteUser(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("user deleted", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "user deleted",
	})
}
