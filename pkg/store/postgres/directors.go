package postgres

import (
	"context"
	"fmt"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

// CreateDirector inserts a director. Names are not unique.
func (s *Store) CreateDirector(ctx context.Context, name string) (*models.Director, error) {
	id, err := s.insertID(ctx, "INSERT INTO directors (name) VALUES ($1) RETURNING id", name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert director %q: %w", name, err)
	}
	return &models.Director{ID: id, Name: name}, nil
}

// ListDirectorsWithCount returns every director and how many movies reference it.
func (s *Store) ListDirectorsWithCount(ctx context.Context) ([]models.DirectorWithCount, error) {
	const query = `
		SELECT d.id, d.name, COUNT(m.id)
		FROM directors d
		LEFT JOIN movies m ON m.director_id = d.id
		GROUP BY d.id, d.name
		ORDER BY d.id`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, runtime.NewQueryError(query, err)
	}
	defer rows.Close()

	directors := make([]models.DirectorWithCount, 0)
	for rows.Next() {
		var d models.DirectorWithCount
		if err := rows.Scan(&d.ID, &d.Name, &d.Count.Movies); err != nil {
			return nil, runtime.NewQueryError(query, err)
		}
		directors = append(directors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, runtime.NewQueryError(query, err)
	}
	return directors, nil
}

// FindDirectorByName returns the oldest director with the given name.
func (s *Store) FindDirectorByName(ctx context.Context, name string) (*models.Director, error) {
	const query = "SELECT id, name FROM directors WHERE name = $1 ORDER BY id LIMIT 1"

	var d models.Director
	if err := s.q.QueryRow(ctx, query, name).Scan(&d.ID, &d.Name); err != nil {
		return nil, runtime.NewQueryError(query, err)
	}
	return &d, nil
}

// DeleteDirector deletes a director. Movies pointing at it keep a NULL director_id.
func (s *Store) DeleteDirector(ctx context.Context, id int64) error {
	deleted, err := s.exec(ctx, "DELETE FROM directors WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete director %d: %w", id, err)
	}
	if deleted == 0 {
		return fmt.Errorf("director %d: %w", id, runtime.ErrNotFound)
	}
	return nil
}

// SetMovieDirector replaces the director of a movie.
func (s *Store) SetMovieDirector(ctx context.Context, movieID, directorID int64) (*models.Movie, error) {
	var movie *models.Movie
	err := s.withTx(ctx, func(t *Store) error {
		updated, err := t.exec(ctx, "UPDATE movies SET director_id = $2 WHERE id = $1", movieID, directorID)
		if err != nil {
			return fmt.Errorf("failed to set director of movie %d: %w", movieID, err)
		}
		if updated == 0 {
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
	const query = `
		SELECT d.id, d.name
		FROM movies m
		LEFT JOIN directors d ON d.id = m.director_id
		WHERE m.id = $1`

	var (
		id   *int64
		name *string
	)
	if err := s.q.QueryRow(ctx, query, movieID).Scan(&id, &name); err != nil {
		return nil, runtime.NewQueryError(query, err)
	}
	if id == nil {
		return nil, nil
	}
	return &models.Director{ID: *id, Name: *name}, nil
}
