package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

// DefaultLockID is the advisory lock key used while migrating.
const DefaultLockID int64 = 7_263_451_001

// ErrNothingToRollback is returned by RollbackLast when no migration is applied.
var ErrNothingToRollback = errors.New("no applied migration to roll back")

// Executor executes and tracks database migrations.
type Executor struct {
	pool   *pgxpool.Pool
	lockID int64 // PostgreSQL advisory lock ID
}

// NewExecutor creates a new migration executor.
func NewExecutor(pool *pgxpool.Pool) *Executor {
	return &Executor{
		pool:   pool,
		lockID: DefaultLockID,
	}
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (e *Executor) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMP,
			error TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_schema_migrations_status
		ON schema_migrations(status);
	`

	if _, err := e.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	return nil
}

// Lock acquires an advisory lock to prevent concurrent migrations.
func (e *Executor) Lock(ctx context.Context) error {
	if _, err := e.pool.Exec(ctx, "SELECT pg_advisory_lock($1)", e.lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	return nil
}

// Unlock releases the advisory lock.
func (e *Executor) Unlock(ctx context.Context) error {
	var released bool
	err := e.pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", e.lockID).Scan(&released)
	if err != nil {
		return fmt.Errorf("failed to release migration lock: %w", err)
	}
	if !released {
		return fmt.Errorf("lock was not held")
	}
	return nil
}

// GetAppliedMigrations returns all migrations that have been applied.
func (e *Executor) GetAppliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return e.queryRecords(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		WHERE status = 'applied'
		ORDER BY version ASC
	`)
}

// GetAllMigrations returns all migration records.
func (e *Executor) GetAllMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return e.queryRecords(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		ORDER BY version ASC
	`)
}

func (e *Executor) queryRecords(ctx context.Context, query string) ([]MigrationRecord, error) {
	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var record MigrationRecord
		if err := rows.Scan(&record.Version, &record.Name, &record.Status, &record.AppliedAt, &record.Error); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// IsMigrationApplied checks if a specific migration has been applied.
func (e *Executor) IsMigrationApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := e.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = $1 AND status = 'applied'",
		version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return count > 0, nil
}

// Apply executes a migration's up SQL inside one transaction. On failure the
// transaction is rolled back and the failure is recorded separately.
func (e *Executor) Apply(ctx context.Context, migration Migration, dryRun bool) error {
	applied, err := e.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if applied {
		return fmt.Errorf("migration %s is already applied", migration.Version)
	}

	if dryRun {
		return nil
	}

	err = e.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version, name, status) VALUES ($1, $2, 'pending') ON CONFLICT (version) DO UPDATE SET status = 'pending'",
			migration.Version, migration.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}

		for i, stmt := range Statements(migration.UpSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return &runtime.MigrationError{
					Version: migration.Version,
					Message: fmt.Sprintf("statement %d failed", i+1),
					Err:     runtime.NewQueryError(stmt, err),
				}
			}
		}

		_, err = tx.Exec(ctx,
			"UPDATE schema_migrations SET status = 'applied', applied_at = $1, error = NULL WHERE version = $2",
			time.Now(), migration.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update migration status: %w", err)
		}
		return nil
	})
	if err != nil {
		e.recordFailure(ctx, migration, err)
		return err
	}

	return nil
}

func (e *Executor) recordFailure(ctx context.Context, migration Migration, cause error) {
	_, _ = e.pool.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, status, applied_at, error)
		 VALUES ($1, $2, 'failed', $3, $4)
		 ON CONFLICT (version) DO UPDATE SET status = 'failed', applied_at = $3, error = $4`,
		migration.Version, migration.Name, time.Now(), cause.Error(),
	)
}

// Rollback executes a migration's down SQL and removes its record.
func (e *Executor) Rollback(ctx context.Context, migration Migration, dryRun bool) error {
	applied, err := e.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("migration %s is not applied", migration.Version)
	}
	if migration.DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", migration.Version)
	}

	if dryRun {
		return nil
	}

	return e.inTx(ctx, func(tx pgx.Tx) error {
		for i, stmt := range Statements(migration.DownSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return &runtime.MigrationError{
					Version: migration.Version,
					Message: fmt.Sprintf("rollback statement %d failed", i+1),
					Err:     runtime.NewQueryError(stmt, err),
				}
			}
		}

		if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
			return fmt.Errorf("failed to delete migration record: %w", err)
		}
		return nil
	})
}

// ApplyAll applies all pending migrations in version order and returns the
// versions it applied.
func (e *Executor) ApplyAll(ctx context.Context, migrations []Migration, dryRun bool) ([]string, error) {
	applied, err := e.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	appliedMap := make(map[string]bool, len(applied))
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	var done []string
	for _, migration := range migrations {
		if appliedMap[migration.Version] {
			continue
		}

		if err := e.Apply(ctx, migration, dryRun); err != nil {
			return done, fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		done = append(done, migration.Version)
	}

	return done, nil
}

// RollbackLast rolls back the most recently applied migration and returns its version.
func (e *Executor) RollbackLast(ctx context.Context, migrations []Migration, dryRun bool) (string, error) {
	applied, err := e.GetAppliedMigrations(ctx)
	if err != nil {
		return "", err
	}
	if len(applied) == 0 {
		return "", ErrNothingToRollback
	}

	last := applied[len(applied)-1]
	for _, m := range migrations {
		if m.Version == last.Version {
			return last.Version, e.Rollback(ctx, m, dryRun)
		}
	}

	return "", fmt.Errorf("migration file not found for version %s", last.Version)
}

// GetStatus returns the status of all migrations.
func (e *Executor) GetStatus(ctx context.Context, migrations []Migration) ([]MigrationRecord, error) {
	recorded, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[string]MigrationRecord, len(recorded))
	for _, m := range recorded {
		byVersion[m.Version] = m
	}

	records := make([]MigrationRecord, 0, len(migrations))
	for _, migration := range migrations {
		if record, exists := byVersion[migration.Version]; exists {
			records = append(records, record)
			continue
		}
		records = append(records, MigrationRecord{
			Version: migration.Version,
			Name:    migration.Name,
			Status:  StatusPending,
		})
	}

	return records, nil
}

func (e *Executor) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
