package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// identityRepo implements IdentityRepository.
type identityRepo struct {
	pool PgxPool
}

const identityColumns = `uid, email, COALESCE(password_hash, ''), display_name, avatar_url, provider, COALESCE(subject, ''), created_at, last_login_at`

func scanIdentity(row interface{ Scan(dest ...any) error }) (*Identity, error) {
	var id Identity
	if err := row.Scan(&id.UID, &id.Email, &id.PasswordHash, &id.DisplayName, &id.AvatarURL, &id.Provider, &id.Subject, &id.CreatedAt, &id.LastLoginAt); err != nil {
		return nil, translate(err)
	}
	return &id, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *identityRepo) Create(ctx context.Context, identity Identity) (*Identity, error) {
	defer observeDB(ctx, "identities.create")()

	if identity.UID == uuid.Nil {
		identity.UID = uuid.New()
	}
	const q = `INSERT INTO identities (uid, email, password_hash, display_name, avatar_url, provider, subject)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + identityColumns
	row := r.pool.QueryRow(ctx, q,
		identity.UID,
		strings.ToLower(strings.TrimSpace(identity.Email)),
		nullable(identity.PasswordHash),
		identity.DisplayName,
		identity.AvatarURL,
		identity.Provider,
		nullable(identity.Subject),
	)
	created, err := scanIdentity(row)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return created, nil
}

func (r *identityRepo) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	defer observeDB(ctx, "identities.get_by_email")()

	const q = `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return scanIdentity(r.pool.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(email))))
}

func (r *identityRepo) GetBySubject(ctx context.Context, provider, subject string) (*Identity, error) {
	defer observeDB(ctx, "identities.get_by_subject")()

	const q = `SELECT ` + identityColumns + ` FROM identities WHERE provider = $1 AND subject = $2`
	return scanIdentity(r.pool.QueryRow(ctx, q, provider, subject))
}

func (r *identityRepo) UpdateProfile(ctx context.Context, uid uuid.UUID, displayName, avatarURL string) error {
	defer observeDB(ctx, "identities.update_profile")()

	const q = `UPDATE identities SET display_name = $2, avatar_url = $3 WHERE uid = $1`
	tag, err := r.pool.Exec(ctx, q, uid, displayName, avatarURL)
	if err != nil {
		return fmt.Errorf("update identity %s: %w", uid, translate(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *identityRepo) TouchLogin(ctx context.Context, uid uuid.UUID) error {
	defer observeDB(ctx, "identities.touch_login")()

	const q = `UPDATE identities SET last_login_at = NOW() WHERE uid = $1`
	if _, err := r.pool.Exec(ctx, q, uid); err != nil {
		return fmt.Errorf("touch identity %s: %w", uid, err)
	}
	return nil
}

// sessionRepo implements SessionRepository.
type sessionRepo struct {
	pool PgxPool
}

func (r *sessionRepo) Create(ctx context.Context, session Session) error {
	defer observeDB(ctx, "sessions.create")()

	const q = `INSERT INTO sessions (id, identity_uid, user_agent, ip_address, expires_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.pool.Exec(ctx, q, session.ID, session.IdentityUID, session.UserAgent, session.IPAddress, session.ExpiresAt); err != nil {
		return fmt.Errorf("create session: %w", translate(err))
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	defer observeDB(ctx, "sessions.get")()

	const q = `SELECT s.id, s.identity_uid, s.user_agent, s.ip_address, s.created_at, s.last_seen_at, s.expires_at,
       i.uid, i.email, COALESCE(i.password_hash, ''), i.display_name, i.avatar_url, i.provider, COALESCE(i.subject, ''), i.created_at, i.last_login_at
FROM sessions s
JOIN identities i ON i.uid = s.identity_uid
WHERE s.id = $1 AND s.expires_at > NOW()`

	var s Session
	ident := &s.Identity
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.IdentityUID, &s.UserAgent, &s.IPAddress, &s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt,
		&ident.UID, &ident.Email, &ident.PasswordHash, &ident.DisplayName, &ident.AvatarURL, &ident.Provider, &ident.Subject, &ident.CreatedAt, &ident.LastLoginAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	defer observeDB(ctx, "sessions.touch")()

	const q = `UPDATE sessions SET last_seen_at = NOW(), expires_at = $2 WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, expiresAt); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	defer observeDB(ctx, "sessions.delete")()

	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	defer observeDB(ctx, "sessions.delete_expired")()

	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
