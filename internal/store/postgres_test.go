package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityRow(uid uuid.UUID, email string) []any {
	return []any{uid, email, "$2a$10$hash", "Sam Lee", "", ProviderPassword, "", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), nil}
}

func TestIdentityCreateNormalizesEmail(t *testing.T) {
	uid := uuid.New()
	pool := &mockPool{t: t, queries: []queryExpectation{{
		expect: regexp.MustCompile(`INSERT INTO identities`),
		args:   []any{uid, "sam@example.com", "$2a$10$hash", "Sam Lee", "", ProviderPassword, nil},
		row:    identityRow(uid, "sam@example.com"),
	}}}
	s := newWithPool(pool)

	created, err := s.Identities.Create(context.Background(), Identity{
		UID:          uid,
		Email:        "  Sam@Example.com ",
		PasswordHash: "$2a$10$hash",
		DisplayName:  "Sam Lee",
		Provider:     ProviderPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, uid, created.UID)
	assert.Equal(t, "sam@example.com", created.Email)
	assert.Nil(t, created.LastLoginAt)
	pool.assertDone()
}

func TestIdentityCreateDuplicateEmail(t *testing.T) {
	pool := &mockPool{t: t, queries: []queryExpectation{{
		expect: regexp.MustCompile(`INSERT INTO identities`),
		err:    &pgconn.PgError{Code: "23505", ConstraintName: "identities_email_key"},
	}}}
	s := newWithPool(pool)

	_, err := s.Identities.Create(context.Background(), Identity{Email: "sam@example.com", PasswordHash: "x", Provider: ProviderPassword})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestIdentityGetByEmailNotFound(t *testing.T) {
	pool := &mockPool{t: t, queries: []queryExpectation{{
		expect: regexp.MustCompile(`FROM identities WHERE email = \$1`),
		args:   []any{"nobody@example.com"},
		err:    pgx.ErrNoRows,
	}}}
	s := newWithPool(pool)

	_, err := s.Identities.GetByEmail(context.Background(), "Nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdentityUpdateProfileMissing(t *testing.T) {
	uid := uuid.New()
	pool := &mockPool{t: t, execs: []execExpectation{{
		expect: regexp.MustCompile(`UPDATE identities SET display_name`),
		args:   []any{uid, "New Name", "https://img.example.com/a.png"},
		tag:    "UPDATE 0",
	}}}
	s := newWithPool(pool)

	err := s.Identities.UpdateProfile(context.Background(), uid, "New Name", "https://img.example.com/a.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionGetJoinsIdentity(t *testing.T) {
	uid := uuid.New()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	row := append([]any{"sess-1", uid, "Mozilla", "10.0.0.1", now, now, now.Add(time.Hour)}, identityRow(uid, "sam@example.com")...)
	pool := &mockPool{t: t, queries: []queryExpectation{{
		expect: regexp.MustCompile(`JOIN identities i ON i.uid = s.identity_uid`),
		args:   []any{"sess-1"},
		row:    row,
	}}}
	s := newWithPool(pool)

	sess, err := s.Sessions.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, uid, sess.IdentityUID)
	assert.Equal(t, "sam@example.com", sess.Identity.Email)
	assert.Equal(t, "Sam Lee", sess.Identity.DisplayName)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
}

func TestSessionGetExpiredIsNotFound(t *testing.T) {
	pool := &mockPool{t: t, queries: []queryExpectation{{
		expect: regexp.MustCompile(`s.expires_at > NOW\(\)`),
		err:    pgx.ErrNoRows,
	}}}
	s := newWithPool(pool)

	_, err := s.Sessions.Get(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionDeleteExpiredReportsCount(t *testing.T) {
	pool := &mockPool{t: t, execs: []execExpectation{{
		expect: regexp.MustCompile(`DELETE FROM sessions WHERE expires_at <= NOW\(\)`),
		tag:    "DELETE 3",
	}}}
	s := newWithPool(pool)

	n, err := s.Sessions.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestHealthCheck(t *testing.T) {
	down := errors.New("connection refused")
	s := newWithPool(&mockPool{t: t, pingErr: down})
	assert.ErrorIs(t, s.HealthCheck(context.Background()), down)

	s = newWithPool(&mockPool{t: t})
	assert.NoError(t, s.HealthCheck(context.Background()))
}
