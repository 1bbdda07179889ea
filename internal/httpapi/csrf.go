package httpapi

import (
	"net/http"
	"time"

	"github.com/upmenu/menu-api/internal/auth"
)

const (
	csrfCookieName  = "csrf-token"
	csrfHeaderName  = "X-CSRF-Token"
	csrfTokenLength = 32
)

// CSRF enforces double-submit protection on state-changing methods: the
// cookie carries the hash of the token, the header carries the raw token,
// and the two must match in constant time. GET, HEAD, and OPTIONS pass
// through untouched.
func (a *API) CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get(csrfHeaderName)
		cookie, err := r.Cookie(csrfCookieName)
		if headerToken == "" || err != nil || cookie.Value == "" {
			a.writeError(w, r, http.StatusForbidden, "CSRF token missing", "no csrf header or cookie")
			return
		}
		if !auth.VerifyTokenHash(headerToken, cookie.Value) {
			a.writeError(w, r, http.StatusForbidden, "Invalid CSRF token", "csrf hash mismatch")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleIssueCSRFToken mints a fresh token, sets its hash as the csrf-token
// cookie, and returns the raw token for the client to echo back in the
// X-CSRF-Token header. Only the hash ever travels in the cookie.
func (a *API) handleIssueCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := auth.GenerateSecureToken(csrfTokenLength)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    auth.HashToken(token),
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   !a.devMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}
