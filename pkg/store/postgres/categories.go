package postgres

import (
	"context"
	"fmt"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

// resolveCategory creates or connects a category according to ref.Mode.
func (s *Store) resolveCategory(ctx context.Context, ref models.CategoryRef) (*models.Category, error) {
	if ref.Mode == models.CategoryConnectOrCreate {
		return s.findOrCreateCategory(ctx, ref.Name)
	}

	id, err := s.insertID(ctx, "INSERT INTO categories (name) VALUES ($1) RETURNING id", ref.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", ref.Name, err)
	}
	return &models.Category{ID: id, Name: ref.Name}, nil
}

// findOrCreateCategory selects by name and inserts only when absent. The
// insert ignores a concurrent winner and the row is read back either way.
func (s *Store) findOrCreateCategory(ctx context.Context, name string) (*models.Category, error) {
	category, err := s.findCategory(ctx, name)
	if err == nil {
		return category, nil
	}
	if !runtime.IsNotFound(err) {
		return nil, err
	}

	if _, err := s.exec(ctx, "INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", name); err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return s.findCategory(ctx, name)
}

func (s *Store) findCategory(ctx context.Context, name string) (*models.Category, error) {
	const query = "SELECT id, name FROM categories WHERE name = $1"

	var category models.Category
	if err := s.q.QueryRow(ctx, query, name).Scan(&category.ID, &category.Name); err != nil {
		return nil, runtime.NewQueryError(query, err)
	}
	return &category, nil
}

// UpsertCategory creates the category if absent; an existing row is left unchanged.
func (s *Store) UpsertCategory(ctx context.Context, name string) (*models.Category, error) {
	var category *models.Category
	err := s.withTx(ctx, func(t *Store) error {
		var err error
		category, err = t.findOrCreateCategory(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Store) link(ctx context.Context, movieID, categoryID int64) error {
	_, err := s.exec(ctx,
		"INSERT INTO category_and_movies (movie_id, category_id) VALUES ($1, $2)",
		movieID, categoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to link movie %d to category %d: %w", movieID, categoryID, err)
	}
	return nil
}

// AddCategoryToMovie resolves the category by name and links it to the movie.
func (s *Store) AddCategoryToMovie(ctx context.Context, movieID int64, category string) (*models.Movie, error) {
	var movie *models.Movie
	err := s.withTx(ctx, func(t *Store) error {
		if _, err := t.FindMovie(ctx, movieID); err != nil {
			return err
		}

		resolved, err := t.findOrCreateCategory(ctx, category)
		if err != nil {
			return err
		}
		if err := t.link(ctx, movieID, resolved.ID); err != nil {
			return err
		}

		movie, err = t.FindMovie(ctx, movieID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movie, nil
}

// RemoveCategoryFromMovie deletes the join row; the movie and category stay.
func (s *Store) RemoveCategoryFromMovie(ctx context.Context, movieID int64, category string) (int64, error) {
	removed, err := s.exec(ctx,
		`DELETE FROM category_and_movies
		 WHERE movie_id = $1
		   AND category_id IN (SELECT id FROM categories WHERE name = $2)`,
		movieID, category,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to remove category %q from movie %d: %w", category, movieID, err)
	}
	return removed, nil
}

// FindCategoryLinks walks from a category name back to its movies.
func (s *Store) FindCategoryLinks(ctx context.Context, category string) ([]*models.CategoryAndMovie, error) {
	const query = `
		SELECT cm.movie_id, cm.category_id, c.name,
		       m.id, m.title, m.release_date, m.detail_id, m.director_id, m.user_id,
		       md.id, md.duration, md.description,
		       u.id, u.name, u.email
		FROM category_and_movies cm
		JOIN categories c ON c.id = cm.category_id
		JOIN movies m ON m.id = cm.movie_id
		JOIN movie_details md ON md.id = m.detail_id
		JOIN users u ON u.id = m.user_id
		WHERE c.name = $1
		ORDER BY cm.movie_id`

	rows, err := s.q.Query(ctx, query, category)
	if err != nil {
		return nil, runtime.NewQueryError(query, err)
	}
	defer rows.Close()

	links := make([]*models.CategoryAndMovie, 0)
	for rows.Next() {
		var (
			link   models.CategoryAndMovie
			cat    models.Category
			movie  models.Movie
			detail models.MovieDetail
			user   models.User
		)
		err := rows.Scan(
			&link.MovieID, &link.CategoryID, &cat.Name,
			&movie.ID, &movie.Title, &movie.ReleaseDate, &movie.DetailID, &movie.DirectorID, &movie.UserID,
			&detail.ID, &detail.Duration, &detail.Description,
			&user.ID, &user.Name, &user.Email,
		)
		if err != nil {
			return nil, runtime.NewQueryError(query, err)
		}

		cat.ID = link.CategoryID
		movie.Detail = &detail
		movie.User = &user
		link.Category = &cat
		link.Movie = &movie
		links = append(links, &link)
	}
	if err := rows.Err(); err != nil {
		return nil, runtime.NewQueryError(query, err)
	}
	return links, nil
}
