package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeRefresh = "refresh"
	bearerPrefix     = "Bearer "

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPayload is the identity carried inside a signed token. It is never
// persisted.
type TokenPayload struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Type   string `json:"type,omitempty"`
}

// TokenPair is an access/refresh token couple issued together.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type tokenClaims struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies access and refresh tokens with two
// independent HS256 secrets. An access token can never verify against the
// refresh secret or vice versa.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithAccessTTL sets the access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.accessTTL = ttl
		}
	}
}

// WithRefreshTTL sets the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.refreshTTL = ttl
		}
	}
}

// WithTokenClock overrides the time source. Test hook.
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewTokenManager constructs a TokenManager. Secrets must be non-empty and
// distinct.
func NewTokenManager(accessSecret, refreshSecret string, opts ...TokenOption) (*TokenManager, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must be distinct")
	}
	m := &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GenerateTokens signs a short-lived access token and a long-lived refresh
// token from the same {userId, role} payload. The refresh token additionally
// carries type "refresh".
func (m *TokenManager) GenerateTokens(user *AdminUser) (TokenPair, error) {
	access, err := m.sign(user, "", m.accessSecret, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(user, tokenTypeRefresh, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *TokenManager) sign(user *AdminUser, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := m.now().UTC()
	claims := tokenClaims{
		UserID: user.ID,
		Role:   user.Role,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccessToken checks signature and expiry of an access token.
// Every failure mode collapses into ErrInvalidToken.
func (m *TokenManager) VerifyAccessToken(token string) (TokenPayload, error) {
	return m.verify(token, m.accessSecret, false)
}

// VerifyRefreshToken checks signature and expiry of a refresh token and
// rejects any token whose type claim is not "refresh".
func (m *TokenManager) VerifyRefreshToken(token string) (TokenPayload, error) {
	return m.verify(token, m.refreshSecret, true)
}

func (m *TokenManager) verify(token string, secret []byte, wantRefresh bool) (TokenPayload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenPayload{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return TokenPayload{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return TokenPayload{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" || !claims.Role.Valid() {
		return TokenPayload{}, ErrInvalidToken
	}
	if wantRefresh && claims.Type != tokenTypeRefresh {
		return TokenPayload{}, ErrInvalidToken
	}
	return TokenPayload{UserID: claims.UserID, Role: claims.Role, Type: claims.Type}, nil
}

// ExtractBearerToken pulls the token out of an Authorization header value.
// Anything that is not exactly "Bearer <token>" yields the empty string,
// which callers treat as "no credential supplied" rather than an error.
func ExtractBearerToken(header string) string {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return header[len(bearerPrefix):]
}

// GenerateSecureToken returns length cryptographically random bytes as a hex
// string. Used for opaque session tokens and password-reset tokens.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		length = 32
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken one-way hashes an opaque token for storage. Not for passwords;
// those go through bcrypt.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyTokenHash compares a token against its stored hash in constant time.
func VerifyTokenHash(token, hash string) bool {
	computed := HashToken(token)
	if len(computed) != len(hash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
