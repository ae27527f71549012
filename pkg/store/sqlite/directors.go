package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

// CreateDirector inserts a director. Names are not unique.
func (s *Store) CreateDirector(ctx context.Context, name string) (*models.Director, error) {
	director := &models.Director{Name: name}
	q := s.db.NewInsert().Model(director)
	if _, err := q.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to insert director %q: %w", name, queryError(q, err))
	}
	return director, nil
}

type directorCountRow struct {
	ID     int64  `bun:"id"`
	Name   string `bun:"name"`
	Movies int    `bun:"movies"`
}

// ListDirectorsWithCount returns every director and how many movies reference it.
func (s *Store) ListDirectorsWithCount(ctx context.Context) ([]models.DirectorWithCount, error) {
	var rows []directorCountRow
	q := s.db.NewSelect().
		TableExpr("directors AS d").
		ColumnExpr("d.id, d.name, COUNT(m.id) AS movies").
		Join("LEFT JOIN movies AS m ON m.director_id = d.id").
		GroupExpr("d.id, d.name").
		OrderExpr("d.id ASC")

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, queryError(q, err)
	}

	directors := make([]models.DirectorWithCount, 0, len(rows))
	for _, row := range rows {
		directors = append(directors, models.DirectorWithCount{
			Director: models.Director{ID: row.ID, Name: row.Name},
			Count:    models.DirectorCount{Movies: row.Movies},
		})
	}
	return directors, nil
}

// FindDirectorByName returns the oldest director with the given name.
func (s *Store) FindDirectorByName(ctx context.Context, name string) (*models.Director, error) {
	director := new(models.Director)
	q := s.db.NewSelect().Model(director).Where("d.name = ?", name).Order("d.id ASC").Limit(1)
	if err := q.Scan(ctx); err != nil {
		return nil, queryError(q, err)
	}
	return director, nil
}

// DeleteDirector deletes a director. Movies pointing at it keep a NULL director_id.
func (s *Store) DeleteDirector(ctx context.Context, id int64) error {
	q := s.db.NewDelete().Model((*models.Director)(nil)).Where("id = ?", id)
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete director %d: %w", id, queryError(q, err))
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("director %d: %w", id, runtime.ErrNotFound)
	}
	return nil
}

// SetMovieDirector replaces the director of a movie.
func (s *Store) SetMovieDirector(ctx context.Context, movieID, directorID int64) (*models.Movie, error) {
	var movie *models.Movie
	err := s.withTx(ctx, func(t *Store) error {
		q := t.db.NewUpdate().
			Model((*models.Movie)(nil)).
			Set("director_id = ?", directorID).
			Where("id = ?", movieID)

		res, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set director of movie %d: %w", movieID, queryError(q, err))
		}
		if rowsAffected(res) == 0 {
			return fmt.Errorf("movie %d: %w", movieID, runtime.ErrNotFound)
		}

		movie, err = t.FindMovie(ctx, movieID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movie, nil
}

// FindMovieDirector returns nil without error when the movie has no director.
func (s *Store) FindMovieDirector(ctx context.Context, movieID int64) (*models.Director, error) {
	var directorID sql.NullInt64
	q := s.db.NewSelect().Model((*models.Movie)(nil)).Column("director_id").Where("m.id = ?", movieID)
	if err := q.Scan(ctx, &directorID); err != nil {
		return nil, queryError(q, err)
	}
	if !directorID.Valid {
		return nil, nil
	}

	director := new(models.Director)
	sel := s.db.NewSelect().Model(director).Where("d.id = ?", directorID.Int64)
	if err := sel.Scan(ctx); err != nil {
		return nil, queryError(sel, err)
	}
	return director, nil
}
