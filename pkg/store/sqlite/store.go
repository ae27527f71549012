// Package sqlite implements store.Store with bun over an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/marshallshelly/cinema-seed/migrations"
	"github.com/marshallshelly/cinema-seed/pkg/migration"
	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
	"github.com/marshallshelly/cinema-seed/pkg/store"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is a SQLite-backed store.Store.
type Store struct {
	root      *bun.DB
	db        bun.IDB
	inTx      bool
	closeOnce *sync.Once
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path and applies the embedded schema.
// An empty path or MemoryPath yields a fresh in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	sqldb, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps the in-memory database alive and serialises writers.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	s := &Store{root: db, db: db, closeOnce: &sync.Once{}}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	if path == "" || path == MemoryPath {
		return "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate applies every embedded SQLite migration. The files only use
// IF NOT EXISTS, so running it against an existing database is harmless.
func (s *Store) Migrate(ctx context.Context) error {
	migs, err := migration.Load(migrations.FS, migrations.SQLite)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(t *Store) error {
		for _, m := range migs {
			for i, stmt := range migration.Statements(m.UpSQL) {
				if _, err := t.db.ExecContext(ctx, stmt); err != nil {
					return &runtime.MigrationError{
						Version: m.Version,
						Message: fmt.Sprintf("statement %d failed", i+1),
						Err:     runtime.NewQueryError(stmt, err),
					}
				}
			}
		}
		return nil
	})
}

// DB returns the bun handle.
func (s *Store) DB() *bun.DB {
	return s.root
}

// Close closes the database. On a transaction-bound Store it does nothing.
func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	var err error
	s.closeOnce.Do(func() { err = s.root.Close() })
	return err
}

// InTx runs fn inside a transaction. Nested calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.withTx(ctx, func(t *Store) error { return fn(t) })
}

func (s *Store) withTx(ctx context.Context, fn func(t *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.root.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", runtime.Classify(err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{root: s.root, db: tx, inTx: true, closeOnce: s.closeOnce}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", runtime.Classify(err))
	}
	return nil
}

// Reset deletes all rows, join rows first and users last.
func (s *Store) Reset(ctx context.Context) error {
	tables := []any{
		(*models.CategoryAndMovie)(nil),
		(*models.Movie)(nil),
		(*models.MovieDetail)(nil),
		(*models.Director)(nil),
		(*models.Category)(nil),
		(*models.User)(nil),
	}

	return s.withTx(ctx, func(t *Store) error {
		for _, model := range tables {
			q := t.db.NewDelete().Model(model).Where("1 = 1")
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("failed to clear %T: %w", model, queryError(q, err))
			}
		}
		return nil
	})
}

// Counts returns the number of rows per table.
func (s *Store) Counts(ctx context.Context) (models.TableCounts, error) {
	var c models.TableCounts
	targets := []struct {
		model any
		dst   *int64
	}{
		{(*models.CategoryAndMovie)(nil), &c.CategoryAndMovies},
		{(*models.Movie)(nil), &c.Movies},
		{(*models.MovieDetail)(nil), &c.MovieDetails},
		{(*models.Director)(nil), &c.Directors},
		{(*models.Category)(nil), &c.Categories},
		{(*models.User)(nil), &c.Users},
	}

	for _, target := range targets {
		q := s.db.NewSelect().Model(target.model)
		n, err := q.Count(ctx)
		if err != nil {
			return models.TableCounts{}, queryError(q, err)
		}
		*target.dst = int64(n)
	}
	return c, nil
}

// queryError attaches the rendered statement to err.
func queryError(q fmt.Stringer, err error) error {
	return runtime.NewQueryError(q.String(), err)
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
