package auth

import (
	"context"
	"time"
)

// UserStore persists AdminUser records.
type UserStore interface {
	Create(ctx context.Context, u *AdminUser) error
	FindByID(ctx context.Context, id string) (*AdminUser, error)
	FindByEmail(ctx context.Context, email string) (*AdminUser, error)
	List(ctx context.Context) ([]*AdminUser, error)
	Update(ctx context.Context, u *AdminUser) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// SessionStore persists sessions. Sessions are never deleted: revocation is
// a status flip and revoked rows stay behind for audit.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error

	// FindActiveByRefreshToken matches only rows with status ACTIVE and a
	// future expiry. A stale or revoked row is not a session.
	FindActiveByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)

	// Revoke is scoped by both ids so one user cannot revoke another's
	// session.
	Revoke(ctx context.Context, sessionID, userID string) error

	// RevokeAll flips every ACTIVE session of the user to REVOKED.
	RevokeAll(ctx context.Context, userID string) error

	// Rotate replaces the refresh token and extends expiry in one update.
	Rotate(ctx context.Context, sessionID, newRefreshToken string, newExpiry time.Time) error

	ListActive(ctx context.Context, userID string) ([]*Session, error)
}

// ResetTokenStore persists one-time password reset tokens.
type ResetTokenStore interface {
	Create(ctx context.Context, t *PasswordResetToken) error

	// FindValid matches only unused tokens with a future expiry.
	FindValid(ctx context.Context, token string) (*PasswordResetToken, error)

	MarkUsed(ctx context.Context, id string) error
}

// AuditStore appends immutable entries. Nothing in the service reads them
// back.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
}
