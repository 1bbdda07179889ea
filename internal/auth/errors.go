package auth

import "errors"

var (
	// ErrUnauthorized covers every credential failure: unknown email, wrong
	// password, inactive account, revoked session, bad reset token. Callers
	// must not be able to tell which factor failed.
	ErrUnauthorized = errors.New("auth: unauthorized")

	// ErrForbidden means the caller is authenticated but lacks role rank.
	ErrForbidden = errors.New("auth: forbidden")

	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")

	// ErrInvalidToken indicates a token failed signature, expiry, or shape
	// validation. Deliberately a single error for all three.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
)
