package httpapi

import (
	"net/http"

	"github.com/upmenu/menu-api/internal/auth"
)

// Authenticate verifies the bearer token and attaches the {userId, role}
// identity to the request context. A missing token and a failing token get
// distinct messages but the same 401 status.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			a.writeError(w, r, http.StatusUnauthorized, "No token provided", "missing bearer token")
			return
		}
		payload, err := a.tokens.VerifyAccessToken(token)
		if err != nil {
			a.writeError(w, r, http.StatusUnauthorized, "Invalid or expired token", err.Error())
			return
		}
		ctx := auth.ContextWithIdentity(r.Context(), auth.Identity{UserID: payload.UserID, Role: payload.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize enforces the role hierarchy after Authenticate. Missing identity
// is a 401; insufficient rank is a 403. First failure wins.
func (a *API) Authorize(required auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				a.writeError(w, r, http.StatusUnauthorized, "User not authenticated", "no identity in context")
				return
			}
			if !id.Role.Satisfies(required) {
				a.writeError(w, r, http.StatusForbidden, "Insufficient permissions", "role rank too low")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly allows only ADMIN callers.
func (a *API) AdminOnly(next http.Handler) http.Handler {
	return a.Authorize(auth.RoleAdmin)(next)
}

// ManagerOrAdmin allows callers ranked at least MANAGER, which ADMIN also
// satisfies.
func (a *API) ManagerOrAdmin(next http.Handler) http.Handler {
	return a.Authorize(auth.RoleManager)(next)
}

// OptionalAuthenticate attaches an identity when a valid token is present
// and lets the request through untouched otherwise. For endpoints with
// public plus personalized behavior.
func (a *API) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token != "" {
			if payload, err := a.tokens.VerifyAccessToken(token); err == nil {
				ctx := auth.ContextWithIdentity(r.Context(), auth.Identity{UserID: payload.UserID, Role: payload.Role})
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}
