package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool represents the subset of pgxpool.Pool used by the store.
//
// Tests supply a lightweight mock implementation.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store aggregates repositories backed by PostgreSQL.
type Store struct {
	pool PgxPool

	Identities IdentityRepository
	Sessions   SessionRepository
}

// New wires concrete repository implementations with shared connection pool.
func New(pool *pgxpool.Pool) *Store {
	return newWithPool(pool)
}

func newWithPool(pool PgxPool) *Store {
	return &Store{
		pool:       pool,
		Identities: &identityRepo{pool: pool},
		Sessions:   &sessionRepo{pool: pool},
	}
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB(ctx, "db.healthcheck")()
	return s.pool.Ping(ctx)
}
