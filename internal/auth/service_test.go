package auth

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"
)

// In-memory store fakes. They mirror the conditional-update semantics of the
// Postgres stores: revocation is a status flip, lookups filter on status and
// expiry.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*AdminUser
	seq   int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*AdminUser{}}
}

func (s *memUserStore) Create(_ context.Context, u *AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		s.seq++
		u.ID = "user-" + strconv.Itoa(s.seq)
	}
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) List(_ context.Context) ([]*AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*AdminUser
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memUserStore) Update(_ context.Context, u *AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Email, cur.Name, cur.Role, cur.Status = u.Email, u.Name, u.Role, u.Status
	return nil
}

func (s *memUserStore) UpdatePassword(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *memUserStore) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	seq      int
	now      func() time.Time
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[string]*Session{}, now: time.Now}
}

func (s *memSessionStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		s.seq++
		sess.ID = "sess-" + strconv.Itoa(s.seq)
	}
	sess.CreatedAt = s.now()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *memSessionStore) FindActiveByRefreshToken(_ context.Context, refreshToken string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.RefreshToken == refreshToken && sess.Status == SessionActive && sess.ExpiresAt.After(s.now()) {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memSessionStore) Revoke(_ context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if ok && sess.UserID == userID && sess.Status == SessionActive {
		sess.Status = SessionRevoked
	}
	return nil
}

func (s *memSessionStore) RevokeAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == SessionActive {
			sess.Status = SessionRevoked
		}
	}
	return nil
}

func (s *memSessionStore) Rotate(_ context.Context, sessionID, newRefreshToken string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.Status != SessionActive {
		return ErrNotFound
	}
	sess.RefreshToken = newRefreshToken
	sess.ExpiresAt = newExpiry
	return nil
}

func (s *memSessionStore) ListActive(_ context.Context, userID string) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == SessionActive && sess.ExpiresAt.After(s.now()) {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memResetStore struct {
	mu     sync.Mutex
	tokens map[string]*PasswordResetToken
	seq    int
	now    func() time.Time
}

func newMemResetStore() *memResetStore {
	return &memResetStore{tokens: map[string]*PasswordResetToken{}, now: time.Now}
}

func (s *memResetStore) Create(_ context.Context, t *PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		s.seq++
		t.ID = "reset-" + strconv.Itoa(s.seq)
	}
	cp := *t
	s.tokens[t.ID] = &cp
	return nil
}

func (s *memResetStore) FindValid(_ context.Context, token string) (*PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Token == token && !t.Used && t.ExpiresAt.After(s.now()) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memResetStore) MarkUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	t.Used = true
	return nil
}

type memAuditStore struct {
	mu      sync.Mutex
	entries []*AuditEntry
}

func (s *memAuditStore) Append(_ context.Context, entry *AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *memAuditStore) actions() []AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditAction, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

type memNotifier struct {
	mu     sync.Mutex
	emails []string
	tokens []string
}

func (n *memNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
	n.tokens = append(n.tokens, token)
	return nil
}

type testEnv struct {
	svc      *Service
	users    *memUserStore
	sessions *memSessionStore
	resets   *memResetStore
	audit    *memAuditStore
	notifier *memNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:    newMemUserStore(),
		sessions: newMemSessionStore(),
		resets:   newMemResetStore(),
		audit:    &memAuditStore{},
		notifier: &memNotifier{},
	}
	tokens, err := NewTokenManager("access-secret", "refresh-secret")
	if err != nil {
		t.Fatal(err)
	}
	env.svc, err = NewService(env.users, env.sessions, env.resets, env.audit, tokens,
		WithNotifier(env.notifier),
		WithBcryptCost(4),
	)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func (e *testEnv) addUser(t *testing.T, email, password string, role Role, status UserStatus) *AdminUser {
	t.Helper()
	hash, err := HashPassword(password, 4)
	if err != nil {
		t.Fatal(err)
	}
	u := &AdminUser{Email: email, Name: "Test", PasswordHash: hash, Role: role, Status: status}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin@upmenu.com", "admin123", RoleAdmin, StatusActive)
	ctx := context.Background()

	res, err := env.svc.Login(ctx, "Admin@UpMenu.com ", "admin123", "1.2.3.4", "test-agent")
	if err != nil {
		t.Fatal(err)
	}
	if res.User.Role != RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", res.User.Role)
	}
	if res.User.PasswordHash != "" {
		t.Fatal("password hash leaked in login result")
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("missing tokens in login result")
	}
	// The returned user is the record loaded before the last-login write, so
	// the timestamp shows up in the store, not in the login result.
	stored, err := env.users.FindByID(ctx, res.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastLogin == nil {
		t.Fatal("last login not recorded")
	}

	sessions, err := env.svc.GetUserSessions(ctx, res.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	if sessions[0].IPAddress != "1.2.3.4" || sessions[0].UserAgent != "test-agent" {
		t.Fatalf("session metadata not recorded: %+v", sessions[0])
	}
	if got := env.audit.actions(); len(got) != 1 || got[0] != AuditLogin {
		t.Fatalf("expected one LOGIN audit entry, got %v", got)
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "active@x.com", "pass1234", RoleUser, StatusActive)
	env.addUser(t, "frozen@x.com", "pass1234", RoleUser, StatusSuspended)
	ctx := context.Background()

	cases := []struct{ email, password string }{
		{"nobody@x.com", "pass1234"},
		{"active@x.com", "wrongpass"},
		{"frozen@x.com", "pass1234"},
		{"", ""},
	}
	for _, c := range cases {
		if _, err := env.svc.Login(ctx, c.email, c.password, "", ""); err != ErrUnauthorized {
			t.Fatalf("Login(%q) = %v, want ErrUnauthorized", c.email, err)
		}
	}
	// Failed logins leave nothing behind.
	if len(env.sessions.sessions) != 0 {
		t.Fatal("failed login created a session")
	}
	if len(env.audit.actions()) != 0 {
		t.Fatal("failed login wrote an audit entry")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "u@x.com", "pass1234", RoleUser, StatusActive)
	ctx := context.Background()

	res, err := env.svc.Login(ctx, "u@x.com", "pass1234", "", "")
	if err != nil {
		t.Fatal(err)
	}
	old := res.Tokens.RefreshToken

	pair, err := env.svc.RefreshToken(ctx, old)
	if err != nil {
		t.Fatal(err)
	}
	if pair.RefreshToken == old {
		t.Fatal("refresh token was not rotated")
	}

	// The old token no longer matches any active session.
	if _, err := env.svc.RefreshToken(ctx, old); err != ErrUnauthorized {
		t.Fatalf("stale refresh token accepted: %v", err)
	}
	// The new one works.
	if _, err := env.svc.RefreshToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "u@x.com", "pass1234", RoleUser, StatusActive)
	ctx := context.Background()

	res, err := env.svc.Login(ctx, "u@x.com", "pass1234", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.RefreshToken(ctx, res.Tokens.AccessToken); err != ErrUnauthorized {
		t.Fatalf("access token accepted for refresh: %v", err)
	}
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "u@x.com", "pass1234", RoleUser, StatusActive)
	ctx := context.Background()

	res, err := env.svc.Login(ctx, "u@x.com", "pass1234", "", "")
	if err != nil {
		t.Fatal(err)
	}

	u.Status = StatusInactive
	if err := env.users.Update(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.RefreshToken(ctx, res.Tokens.RefreshToken); err != ErrUnauthorized {
		t.Fatalf("deactivated user refreshed a session: %v", err)
	}
}

func TestLogoutScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "a@x.com", "pass1234", RoleUser, StatusActive)
	env.addUser(t, "b@x.com", "pass1234", RoleUser, StatusActive)
	ctx := context.Background()

	ra, err := env.svc.Login(ctx, "a@x.com", "pass1234", "", "")
	if err != nil {
		t.Fatal(err)
	}
	rb, err := env.svc.Login(ctx, "b@x.com", "pass1234", "", "")
	if err != nil {
		t.Fatal(err)
	}

	aSessions, _ := env.svc.GetUserSessions(ctx, ra.User.ID)
	if len(aSessions) != 1 {
		t.Fatalf("expected one session for a, got %d", len(aSessions))
	}

	// b tries to revoke a's session: silently no-op, a stays logged in.
	if err := env.svc.Logout(ctx, aSessions[0].ID, rb.User.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.RefreshToken(ctx, ra.Tokens.RefreshToken); err != nil {
		t.Fatalf("cross-user revoke hit a's session: %v", err)
	}

	// a revokes its own session.
	if err := env.svc.Logout(ctx, aSessions[0].ID, ra.User.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.RefreshToken(ctx, ra.Tokens.RefreshToken); err != ErrUnauthorized {
		t.Fatalf("revoked session still refreshes: %v", err)
	}
}

func TestLogoutAllDevices(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "u@x.com", "pass1234", RoleUser, StatusActive)
	ctx := context.Background()

	r1, _ := env.svc.Login(ctx, "u@x.com", "pass1234", "", "device-1")
	r2, _ := env.svc.Login(ctx, "u@x.com", "pass1234", "", "device-2")

	if err := env.svc.LogoutAllDevices(ctx, r1.User.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.RefreshToken(ctx, r1.Tokens.RefreshToken); err != ErrUnauthorized {
		t.Fatal("device-1 session survived logout-all")
	}
	if _, err := env.svc.RefreshToken(ctx, r2.Tokens.RefreshToken); err != ErrUnauthorized {
		t.Fatal("device-2 session survived logout-all")
	}
}

func TestChangePasswordKeepsSessions(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "u@x.com", "oldpass1", RoleUser, StatusActive)
	ctx := context.Background()

	res, err := env.svc.Login(ctx, "u@x.com", "oldpass1", "", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := env.svc.ChangePassword(ctx, res.User.ID, "wrongpass", "newpass1"); err != ErrUnauthorized {
		t.Fatalf("wrong current password accepted: %v", err)
	}
	if err := env.svc.ChangePassword(ctx, res.User.ID, "oldpass1", "newpass1"); err != nil {
		t.Fatal(err)
	}

	// Old password no longer works, new one does.
	if _, err := env.svc.Login(ctx, "u@x.com", "oldpass1", "", ""); err != ErrUnauthorized {
		t.Fatal("old password still accepted after change")
	}
	if _, err := env.svc.Login(ctx, "u@x.com", "newpass1", "", ""); err != nil {
		t.Fatal(err)
	}

	// Existing session is untouched; only ResetPassword revokes sessions.
	if _, err := env.svc.RefreshToken(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("session revoked by password change: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "u@x.com", "oldpass1", RoleUser, StatusActive)
	ctx := context.Background()

	res, err := env.svc.Login(ctx, "u@x.com", "oldpass1", "", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := env.svc.RequestPasswordReset(ctx, "u@x.com"); err != nil {
		t.Fatal(err)
	}
	if len(env.notifier.tokens) != 1 {
		t.Fatalf("expected one notification, got %d", len(env.notifier.tokens))
	}
	token := env.notifier.tokens[0]

	if err := env.svc.ResetPassword(ctx, token, "newpass1"); err != nil {
		t.Fatal(err)
	}
	// Reset revokes every session.
	if _, err := env.svc.RefreshToken(ctx, res.Tokens.RefreshToken); err != ErrUnauthorized {
		t.Fatal("session survived password reset")
	}
	if _, err := env.svc.Login(ctx, "u@x.com", "newpass1", "", ""); err != nil {
		t.Fatal(err)
	}
	// The token is one-time.
	if err := env.svc.ResetPassword(ctx, token, "another1"); err != ErrUnauthorized {
		t.Fatalf("reset token redeemed twice: %v", err)
	}
}

func TestPasswordResetUnknownEmailSilent(t *testing.T) {
	env := newTestEnv(t)
	if err := env.svc.RequestPasswordReset(context.Background(), "ghost@x.com"); err != nil {
		t.Fatalf("unknown email leaked: %v", err)
	}
	if len(env.notifier.tokens) != 0 {
		t.Fatal("notification sent for unknown email")
	}
}

func TestPasswordResetExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "u@x.com", "pass1234", RoleUser, StatusActive)
	ctx := context.Background()

	expired := &PasswordResetToken{
		UserID:    u.ID,
		Token:     "expired-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := env.resets.Create(ctx, expired); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.ResetPassword(ctx, "expired-token", "newpass1"); err != ErrUnauthorized {
		t.Fatalf("expired reset token accepted: %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Register(ctx, RegisterInput{
		Name: "A", Email: "dup@x.com", Password: "pass1234", Role: RoleUser,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Register(ctx, RegisterInput{
		Name: "B", Email: "DUP@x.com", Password: "pass1234", Role: RoleUser,
	}); err == nil {
		t.Fatal("duplicate email accepted")
	}
}

func TestUpdateUserPartialPatch(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "u@x.com", "pass1234", RoleUser, StatusActive)
	ctx := context.Background()

	role := RoleManager
	got, err := env.svc.UpdateUser(ctx, u.ID, UserUpdate{Role: &role})
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != RoleManager || got.Email != "u@x.com" {
		t.Fatalf("patch touched unrelated fields: %+v", got)
	}

	// Password is re-hashed only when supplied.
	before, _ := env.users.FindByID(ctx, u.ID)
	if _, err := env.svc.UpdateUser(ctx, u.ID, UserUpdate{}); err != nil {
		t.Fatal(err)
	}
	after, _ := env.users.FindByID(ctx, u.ID)
	if before.PasswordHash != after.PasswordHash {
		t.Fatal("empty patch rotated the password hash")
	}
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	a := env.addUser(t, "a@x.com", "pass1234", RoleUser, StatusActive)
	env.addUser(t, "b@x.com", "pass1234", RoleUser, StatusActive)
	ctx := context.Background()

	taken := "b@x.com"
	if _, err := env.svc.UpdateProfile(ctx, a.ID, ProfileUpdate{Email: &taken}); err == nil {
		t.Fatal("email conflict not detected")
	}
	// Re-submitting your own email is not a conflict.
	own := "a@x.com"
	if _, err := env.svc.UpdateProfile(ctx, a.ID, ProfileUpdate{Email: &own}); err != nil {
		t.Fatal(err)
	}
}
