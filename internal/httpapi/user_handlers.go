package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/upmenu/menu-api/internal/auth"
)

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type createUserRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if !validEmail(req.Email) || len(req.Password) < minPasswordLength {
		a.writeError(w, r, http.StatusBadRequest, "A valid email and a password of at least 8 characters are required", "")
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleUser
	}
	if !req.Role.Valid() {
		a.writeError(w, r, http.StatusBadRequest, "Invalid role", "")
		return
	}

	user, err := a.auth.CreateUser(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Name     *string          `json:"name,omitempty"`
	Email    *string          `json:"email,omitempty"`
	Password *string          `json:"password,omitempty"`
	Role     *auth.Role       `json:"role,omitempty"`
	Status   *auth.UserStatus `json:"status,omitempty"`
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if req.Email != nil && !validEmail(*req.Email) {
		a.writeError(w, r, http.StatusBadRequest, "A valid email is required", "")
		return
	}
	if req.Password != nil && len(*req.Password) < minPasswordLength {
		a.writeError(w, r, http.StatusBadRequest, "Password must be at least 8 characters", "")
		return
	}

	user, err := a.auth.UpdateUser(r.Context(), chi.URLParam(r, "id"), auth.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Status:   req.Status,
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	if id, ok := auth.IdentityFromContext(r.Context()); ok && id.UserID == targetID {
		a.writeError(w, r, http.StatusBadRequest, "Cannot delete your own account", "")
		return
	}
	if err := a.auth.DeleteUser(r.Context(), targetID); err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}
