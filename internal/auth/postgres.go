package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/upmenu/menu-api/internal/ids"
)

// PGUserStore implements UserStore over PostgreSQL.
type PGUserStore struct{ db *sql.DB }

func NewPGUserStore(db *sql.DB) *PGUserStore { return &PGUserStore{db: db} }

var _ UserStore = (*PGUserStore)(nil)

const userColumns = `id, email, name, password_hash, role, status, last_login, created_at, updated_at`

func (s *PGUserStore) Create(ctx context.Context, u *AdminUser) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into admin_users(id, email, name, password_hash, role, status) values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Status,
	)
	return err
}

func scanUser(row interface{ Scan(...any) error }) (*AdminUser, error) {
	var (
		u         AdminUser
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Status,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *PGUserStore) FindByID(ctx context.Context, id string) (*AdminUser, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from admin_users where id=$1`, id))
}

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*AdminUser, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from admin_users where email=$1`, email))
}

func (s *PGUserStore) List(ctx context.Context) ([]*AdminUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from admin_users order by created_at desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*AdminUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PGUserStore) Update(ctx context.Context, u *AdminUser) error {
	res, err := s.db.ExecContext(ctx,
		`update admin_users set email=$2, name=$3, role=$4, status=$5, updated_at=now() where id=$1`,
		u.ID, u.Email, u.Name, u.Role, u.Status,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update admin_users set password_hash=$2, updated_at=now() where id=$1`,
		userID, passwordHash,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGUserStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update admin_users set last_login=$2 where id=$1`, userID, at)
	return err
}

func (s *PGUserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from admin_users where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PGSessionStore implements SessionStore over PostgreSQL. Every state
// transition is a single conditional update; no multi-step transactions.
type PGSessionStore struct{ db *sql.DB }

func NewPGSessionStore(db *sql.DB) *PGSessionStore { return &PGSessionStore{db: db} }

var _ SessionStore = (*PGSessionStore)(nil)

const sessionColumns = `id, user_id, token, refresh_token, status, expires_at, ip_address, user_agent, created_at, updated_at`

func (s *PGSessionStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, user_id, token, refresh_token, status, expires_at, ip_address, user_agent)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		sess.ID, sess.UserID, sess.Token, sess.RefreshToken, sess.Status, sess.ExpiresAt,
		nullable(sess.IPAddress), nullable(sess.UserAgent),
	)
	return err
}

func (s *PGSessionStore) FindActiveByRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from sessions
		 where refresh_token=$1 and status=$2 and expires_at > now()`,
		refreshToken, SessionActive,
	)
	return scanSession(row)
}

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var (
		sess   Session
		ip, ua sql.NullString
	)
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.RefreshToken, &sess.Status,
		&sess.ExpiresAt, &ip, &ua, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sess.IPAddress = ip.String
	sess.UserAgent = ua.String
	return &sess, nil
}

func (s *PGSessionStore) Revoke(ctx context.Context, sessionID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set status=$3, updated_at=now() where id=$1 and user_id=$2 and status=$4`,
		sessionID, userID, SessionRevoked, SessionActive,
	)
	return err
}

func (s *PGSessionStore) RevokeAll(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set status=$2, updated_at=now() where user_id=$1 and status=$3`,
		userID, SessionRevoked, SessionActive,
	)
	return err
}

func (s *PGSessionStore) Rotate(ctx context.Context, sessionID, newRefreshToken string, newExpiry time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update sessions set refresh_token=$2, expires_at=$3, updated_at=now() where id=$1 and status=$4`,
		sessionID, newRefreshToken, newExpiry, SessionActive,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGSessionStore) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+sessionColumns+` from sessions
		 where user_id=$1 and status=$2 and expires_at > now() order by created_at desc`,
		userID, SessionActive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// PGResetTokenStore implements ResetTokenStore over PostgreSQL.
type PGResetTokenStore struct{ db *sql.DB }

func NewPGResetTokenStore(db *sql.DB) *PGResetTokenStore { return &PGResetTokenStore{db: db} }

var _ ResetTokenStore = (*PGResetTokenStore)(nil)

func (s *PGResetTokenStore) Create(ctx context.Context, t *PasswordResetToken) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into password_reset_tokens(id, user_id, token, used, expires_at) values($1,$2,$3,$4,$5)`,
		t.ID, t.UserID, t.Token, t.Used, t.ExpiresAt,
	)
	return err
}

func (s *PGResetTokenStore) FindValid(ctx context.Context, token string) (*PasswordResetToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token, used, expires_at, created_at from password_reset_tokens
		 where token=$1 and used=false and expires_at > now()`,
		token,
	)
	var t PasswordResetToken
	if err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.Used, &t.ExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PGResetTokenStore) MarkUsed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update password_reset_tokens set used=true where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// PGAuditStore implements AuditStore over PostgreSQL.
type PGAuditStore struct{ db *sql.DB }

func NewPGAuditStore(db *sql.DB) *PGAuditStore { return &PGAuditStore{db: db} }

var _ AuditStore = (*PGAuditStore)(nil)

func (s *PGAuditStore) Append(ctx context.Context, entry *AuditEntry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	oldVals, err := marshalValues(entry.OldValues)
	if err != nil {
		return err
	}
	newVals, err := marshalValues(entry.NewValues)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into audit_log(id, user_id, action, resource_type, resource_id, old_values, new_values, ip_address, user_agent)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.ID, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID,
		oldVals, newVals, nullable(entry.IPAddress), nullable(entry.UserAgent),
	)
	return err
}

func marshalValues(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
