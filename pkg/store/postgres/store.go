// Package postgres implements store.Store on top of pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
	"github.com/marshallshelly/cinema-seed/pkg/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db   *runtime.DB
	q    querier
	inTx bool
}

var _ store.Store = (*Store)(nil)

// New wraps an open connection.
func New(db *runtime.DB) *Store {
	return &Store{db: db, q: db.Pool()}
}

// Open connects to url and returns a Store owning the connection.
func Open(ctx context.Context, url string, config *runtime.Config) (*Store, error) {
	db, err := runtime.ConnectWithURL(ctx, url, config)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// OpenConfig connects with discrete connection settings.
func OpenConfig(ctx context.Context, config *runtime.Config) (*Store, error) {
	db, err := runtime.Connect(ctx, config)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// DB returns the underlying connection.
func (s *Store) DB() *runtime.DB {
	return s.db
}

// Close releases the connection pool. On a transaction-bound Store it does nothing.
func (s *Store) Close() error {
	if s.inTx || s.db == nil {
		return nil
	}
	s.db.Close()
	return nil
}

// InTx runs fn inside a transaction. Nested calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.withTx(ctx, func(t *Store) error { return fn(t) })
}

func (s *Store) withTx(ctx context.Context, fn func(t *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", runtime.Classify(err))
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op once committed

	if err := fn(&Store{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", runtime.Classify(err))
	}
	return nil
}

// Reset deletes all rows, join rows first and users last.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"category_and_movies", "movies", "movie_details", "directors", "categories", "users"}

	return s.withTx(ctx, func(t *Store) error {
		for _, table := range tables {
			if _, err := t.exec(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Counts returns the number of rows per table.
func (s *Store) Counts(ctx context.Context) (models.TableCounts, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM category_and_movies),
			(SELECT COUNT(*) FROM movies),
			(SELECT COUNT(*) FROM movie_details),
			(SELECT COUNT(*) FROM directors),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM users)`

	var c models.TableCounts
	err := s.q.QueryRow(ctx, query).Scan(
		&c.CategoryAndMovies, &c.Movies, &c.MovieDetails, &c.Directors, &c.Categories, &c.Users,
	)
	if err != nil {
		return models.TableCounts{}, runtime.NewQueryError(query, err)
	}
	return c, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, runtime.NewQueryError(query, err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, runtime.NewQueryError(query, err)
	}
	return id, nil
}
