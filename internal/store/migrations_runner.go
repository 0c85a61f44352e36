package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jw6ventures/fitverse/internal/migrations"
)

// MigrationPool is the subset of pgxpool.Pool used to apply migrations.
type MigrationPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// migrationLockID serializes migration runs across replicas starting together.
const migrationLockID int64 = 0x66697476

// ApplyMigrations applies every embedded SQL migration that has not been
// recorded in schema_migrations, in lexical order, each in its own transaction.
func ApplyMigrations(ctx context.Context, pool MigrationPool) error {
	return applyMigrations(ctx, pool, migrations.Files)
}

func applyMigrations(ctx context.Context, pool MigrationPool, files fs.FS) error {
	names, err := listMigrationFiles(files)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	if err := ensureMigrationTable(ctx, pool); err != nil {
		return err
	}

	for _, name := range names {
		applied, err := migrationApplied(ctx, pool, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := applyMigration(ctx, pool, files, name); err != nil {
			return err
		}
		slog.Info("migration_applied", "version", name)
	}
	return nil
}

func listMigrationFiles(files fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func ensureMigrationTable(ctx context.Context, pool MigrationPool) error {
	const q = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version TEXT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func migrationApplied(ctx context.Context, pool MigrationPool, name string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version=$1)`
	var exists bool
	if err := pool.QueryRow(ctx, q, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	return exists, nil
}

func applyMigration(ctx context.Context, pool MigrationPool, files fs.FS, name string) error {
	contents, err := fs.ReadFile(files, name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("lock migration %s: %w", name, err)
	}

	// Another replica may have applied it while we waited for the lock.
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version=$1)`, name).Scan(&exists); err != nil {
		return fmt.Errorf("recheck migration %s: %w", name, err)
	}
	if exists {
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, string(contents)); err != nil {
		return fmt.Errorf("apply migration %s: %w", name, err)
	}
	const record = `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`
	if _, err := tx.Exec(ctx, record, name); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}
