package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultSessionTTL    = 7 * 24 * time.Hour
	defaultResetTokenTTL = time.Hour
)

// Notifier delivers password-reset tokens to users. Stubbed by a log writer
// in development; a real channel in production.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Service orchestrates login, session lifecycle, password management, and
// admin user CRUD. All collaborators are injected; there are no ambient
// singletons.
type Service struct {
	users    UserStore
	sessions SessionStore
	resets   ResetTokenStore
	audit    AuditStore
	tokens   *TokenManager
	notifier Notifier

	now        func() time.Time
	bcryptCost int
	sessionTTL time.Duration
	resetTTL   time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNotifier sets the password-reset delivery channel.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithBcryptCost sets the password hashing work factor.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost > 0 {
			s.bcryptCost = cost
		}
	}
}

// WithSessionTTL sets the session lifetime applied at login and on rotation.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithResetTokenTTL sets the password-reset token lifetime.
func WithResetTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// NewService wires the auth service from its collaborators.
func NewService(users UserStore, sessions SessionStore, resets ResetTokenStore, audit AuditStore, tokens *TokenManager, opts ...ServiceOption) (*Service, error) {
	if users == nil || sessions == nil || resets == nil || audit == nil {
		return nil, fmt.Errorf("%w: all stores are required", ErrInvalidInput)
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: token manager is required", ErrInvalidInput)
	}
	s := &Service{
		users:      users,
		sessions:   sessions,
		resets:     resets,
		audit:      audit,
		tokens:     tokens,
		now:        time.Now,
		bcryptCost: DefaultBcryptCost,
		sessionTTL: defaultSessionTTL,
		resetTTL:   defaultResetTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login authenticates a user by email and password. Unknown email, inactive
// account, and wrong password all return ErrUnauthorized indistinguishably.
// No side effect happens before the password verifies: a failed login never
// creates a session or touches last-login.
func (s *Service) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if user.Status != StatusActive {
		return nil, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrUnauthorized
	}

	pair, err := s.tokens.GenerateTokens(user)
	if err != nil {
		return nil, err
	}
	if err := s.createSession(ctx, user.ID, pair.RefreshToken, ipAddress, userAgent); err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.logActivity(ctx, user.ID, AuditLogin, "AdminUser", user.ID, nil, map[string]any{
		"ipAddress": ipAddress,
		"userAgent": userAgent,
	}, ipAddress, userAgent); err != nil {
		return nil, err
	}

	return &AuthResult{User: user.sanitize(), Tokens: pair}, nil
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// Register creates a new admin user with status ACTIVE.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AdminUser, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || !in.Role.Valid() {
		return nil, ErrInvalidInput
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
	} else if err != ErrNotFound {
		return nil, err
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &AdminUser{
		Email:        email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       StatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.logActivity(ctx, user.ID, AuditCreate, "AdminUser", user.ID, nil, map[string]any{
		"email": email,
		"role":  in.Role,
	}, "", ""); err != nil {
		return nil, err
	}
	return user.sanitize(), nil
}

// RefreshToken exchanges a valid refresh token for a fresh pair and rotates
// the session's refresh token. Signature and type are verified before any
// store lookup so malformed input fails fast. The access token is never
// checked against the session store: access tokens are stateless and
// short-lived, only refresh tokens are session-bound and revocable.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	if _, err := s.tokens.VerifyRefreshToken(refreshToken); err != nil {
		return TokenPair{}, ErrUnauthorized
	}

	session, err := s.sessions.FindActiveByRefreshToken(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return TokenPair{}, ErrUnauthorized
	}
	if user.Status != StatusActive {
		return TokenPair{}, ErrUnauthorized
	}

	pair, err := s.tokens.GenerateTokens(user)
	if err != nil {
		return TokenPair{}, err
	}
	// Rotation: a replayed stale refresh token no longer matches any ACTIVE
	// row. Two refreshes racing on the same token resolve by last write
	// wins; see the session store contract.
	if err := s.sessions.Rotate(ctx, session.ID, pair.RefreshToken, s.now().Add(s.sessionTTL)); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Logout revokes exactly one session, scoped to its owner.
func (s *Service) Logout(ctx context.Context, sessionID, userID string) error {
	if err := s.sessions.Revoke(ctx, sessionID, userID); err != nil {
		return err
	}
	return s.logActivity(ctx, userID, AuditLogout, "AdminUser", userID, nil, map[string]any{
		"sessionId": sessionID,
	}, "", "")
}

// LogoutAllDevices revokes every active session of the user.
func (s *Service) LogoutAllDevices(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	return s.logActivity(ctx, userID, AuditLogout, "AdminUser", userID, nil, map[string]any{
		"allDevices": true,
	}, "", "")
}

// ChangePassword rotates a password after verifying the current one. Other
// sessions stay active; only ResetPassword revokes them. The asymmetry is
// deliberate and preserved from the original product behavior.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(user.PasswordHash, currentPassword); err != nil {
		return ErrUnauthorized
	}
	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return s.logActivity(ctx, userID, AuditPasswordChange, "AdminUser", userID, nil, map[string]any{}, "", "")
}

// RequestPasswordReset issues a one-hour reset token and hands it to the
// notifier. An unknown email returns silently so callers cannot probe for
// account existence.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}

	token, err := GenerateSecureToken(32)
	if err != nil {
		return err
	}
	reset := &PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return err
	}
	if s.notifier != nil {
		return s.notifier.SendPasswordReset(ctx, user.Email, token)
	}
	return nil
}

// ResetPassword redeems a reset token. The token must be unused and
// unexpired; redemption marks it used and revokes every active session of
// the user, since a credential rotation invalidates all prior trust.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	reset, err := s.resets.FindValid(ctx, token)
	if err != nil {
		return ErrUnauthorized
	}
	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		return err
	}
	if err := s.resets.MarkUsed(ctx, reset.ID); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, reset.UserID); err != nil {
		return err
	}
	return s.logActivity(ctx, reset.UserID, AuditPasswordChange, "AdminUser", reset.UserID, nil, map[string]any{
		"viaReset": true,
	}, "", "")
}

// ProfileUpdate is a partial update of a user's own record.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// UpdateProfile patches name and/or email, rejecting an email already taken
// by another user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfileUpdate) (*AdminUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := *user.sanitize()

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" {
			return nil, ErrInvalidInput
		}
		if email != user.Email {
			if _, err := s.users.FindByEmail(ctx, email); err == nil {
				return nil, fmt.Errorf("%w: email is already taken", ErrConflict)
			} else if err != ErrNotFound {
				return nil, err
			}
			user.Email = email
		}
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		user.Name = strings.TrimSpace(*patch.Name)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	after := *user.sanitize()
	if err := s.logActivity(ctx, userID, AuditUpdate, "AdminUser", userID, before, after, "", ""); err != nil {
		return nil, err
	}
	return user.sanitize(), nil
}

// GetUserSessions lists the user's active, non-expired sessions.
func (s *Service) GetUserSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	sessions, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			ID:        sess.ID,
			UserID:    sess.UserID,
			IPAddress: sess.IPAddress,
			UserAgent: sess.UserAgent,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
		})
	}
	return infos, nil
}

// GetUserByID returns a sanitized user or ErrNotFound.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*AdminUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.sanitize(), nil
}

// ListUsers returns every user, newest first, sanitized.
func (s *Service) ListUsers(ctx context.Context) ([]*AdminUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*AdminUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.sanitize())
	}
	return out, nil
}

// CreateUser is the admin-facing variant of Register without the CREATE
// audit entry.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput) (*AdminUser, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || !in.Role.Valid() {
		return nil, ErrInvalidInput
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
	} else if err != ErrNotFound {
		return nil, err
	}
	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &AdminUser{
		Email:        email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       StatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user.sanitize(), nil
}

// UserUpdate is the admin-facing partial update.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Role     *Role
	Status   *UserStatus
}

// UpdateUser patches an arbitrary user. The password is re-hashed only when
// a new one is supplied.
func (s *Service) UpdateUser(ctx context.Context, userID string, patch UserUpdate) (*AdminUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" {
			return nil, ErrInvalidInput
		}
		if email != user.Email {
			if _, err := s.users.FindByEmail(ctx, email); err == nil {
				return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
			} else if err != ErrNotFound {
				return nil, err
			}
			user.Email = email
		}
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, ErrInvalidInput
		}
		user.Role = *patch.Role
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, ErrInvalidInput
		}
		user.Status = *patch.Status
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if patch.Password != nil && *patch.Password != "" {
		hash, err := HashPassword(*patch.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
			return nil, err
		}
	}
	return user.sanitize(), nil
}

// DeleteUser removes a user record. ErrNotFound if the id does not exist.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return err
	}
	return s.users.Delete(ctx, userID)
}

func (s *Service) createSession(ctx context.Context, userID, refreshToken, ipAddress, userAgent string) error {
	// Opaque session token, distinct from the refresh token.
	token, err := GenerateSecureToken(32)
	if err != nil {
		return err
	}
	return s.sessions.Create(ctx, &Session{
		UserID:       userID,
		Token:        token,
		RefreshToken: refreshToken,
		Status:       SessionActive,
		ExpiresAt:    s.now().Add(s.sessionTTL),
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
	})
}

func (s *Service) logActivity(ctx context.Context, userID string, action AuditAction, resourceType, resourceID string, oldValues, newValues any, ipAddress, userAgent string) error {
	return s.audit.Append(ctx, &AuditEntry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OldValues:    oldValues,
		NewValues:    newValues,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CreatedAt:    s.now().UTC(),
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
