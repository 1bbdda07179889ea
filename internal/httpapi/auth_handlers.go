package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/upmenu/menu-api/internal/auth"
	"github.com/upmenu/menu-api/internal/obs"
)

const minPasswordLength = 8

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if !validEmail(req.Email) || req.Password == "" {
		a.writeError(w, r, http.StatusBadRequest, "Email and password are required", "")
		return
	}

	result, err := a.auth.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			obs.CountLogin("denied")
			a.writeError(w, r, http.StatusUnauthorized,
				"Invalid email or password. Please check your credentials and try again.", err.Error())
			return
		}
		a.handleError(w, r, err)
		return
	}
	obs.CountLogin("ok")
	writeJSON(w, http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		a.writeError(w, r, http.StatusBadRequest, "Refresh token is required", "")
		return
	}

	pair, err := a.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			a.writeError(w, r, http.StatusUnauthorized, "Invalid or expired refresh token", err.Error())
			return
		}
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type logoutRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

// handleLogout revokes one session when a sessionId is supplied and every
// session otherwise.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req logoutRequest
	_ = a.decodeJSON(w, r, &req) // an empty body means "all devices"

	var err error
	if req.SessionID != "" {
		err = a.auth.Logout(r.Context(), req.SessionID, id.UserID)
	} else {
		err = a.auth.LogoutAllDevices(r.Context(), id.UserID)
	}
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req changePasswordRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if req.CurrentPassword == "" || len(req.NewPassword) < minPasswordLength {
		a.writeError(w, r, http.StatusBadRequest, "New password must be at least 8 characters", "")
		return
	}

	if err := a.auth.ChangePassword(r.Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			a.writeError(w, r, http.StatusUnauthorized, "Current password is incorrect", err.Error())
			return
		}
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword always answers 200 so the endpoint cannot be used to
// probe which emails exist.
func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if !validEmail(req.Email) {
		a.writeError(w, r, http.StatusBadRequest, "A valid email is required", "")
		return
	}

	if err := a.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the email exists, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if req.Token == "" || len(req.Password) < minPasswordLength {
		a.writeError(w, r, http.StatusBadRequest, "Token and a password of at least 8 characters are required", "")
		return
	}

	if err := a.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			a.writeError(w, r, http.StatusUnauthorized, "Invalid or expired reset token", err.Error())
			return
		}
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	user, err := a.auth.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req updateProfileRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if req.Email != nil && !validEmail(*req.Email) {
		a.writeError(w, r, http.StatusBadRequest, "A valid email is required", "")
		return
	}

	user, err := a.auth.UpdateProfile(r.Context(), id.UserID, auth.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	sessions, err := a.auth.GetUserSessions(r.Context(), id.UserID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}
