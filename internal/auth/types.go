package auth

import "time"

// UserStatus gates whether an account may authenticate.
type UserStatus string

const (
	StatusActive    UserStatus = "ACTIVE"
	StatusInactive  UserStatus = "INACTIVE"
	StatusSuspended UserStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// AdminUser is an identity record for the admin panel.
// PasswordHash never leaves the service layer: it is excluded from JSON and
// additionally blanked by sanitize() on every read path.
type AdminUser struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u AdminUser) sanitize() *AdminUser {
	u.PasswordHash = ""
	return &u
}

// SessionStatus is the two-state lifecycle of a session row.
type SessionStatus string

const (
	SessionActive  SessionStatus = "ACTIVE"
	SessionRevoked SessionStatus = "REVOKED"
)

// Session ties one authenticated client to a revocable refresh token.
// Rows are never deleted; revocation flips Status and the row stays for audit.
type Session struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	Token        string        `json:"-"`
	RefreshToken string        `json:"-"`
	Status       SessionStatus `json:"status"`
	ExpiresAt    time.Time     `json:"expiresAt"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// SessionInfo is the client-facing view of a session.
type SessionInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PasswordResetToken is a one-time credential-recovery artifact. Used flips
// irreversibly on redemption.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AuditAction enumerates the recordable actions.
type AuditAction string

const (
	AuditCreate         AuditAction = "CREATE"
	AuditUpdate         AuditAction = "UPDATE"
	AuditDelete         AuditAction = "DELETE"
	AuditLogin          AuditAction = "LOGIN"
	AuditLogout         AuditAction = "LOGOUT"
	AuditPasswordChange AuditAction = "PASSWORD_CHANGE"
	AuditRoleChange     AuditAction = "ROLE_CHANGE"
)

// AuditEntry is one append-only record of a critical action.
type AuditEntry struct {
	ID           string
	UserID       string
	Action       AuditAction
	ResourceType string
	ResourceID   string
	OldValues    any
	NewValues    any
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}

// AuthResult is what a successful login returns.
type AuthResult struct {
	User   *AdminUser `json:"user"`
	Tokens TokenPair  `json:"tokens"`
}
