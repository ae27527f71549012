package sqlite

import (
	"context"
	"fmt"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

func (s *Store) resolveCategory(ctx context.Context, ref models.CategoryRef) (*models.Category, error) {
	if ref.Mode == models.CategoryConnectOrCreate {
		return s.findOrCreateCategory(ctx, ref.Name)
	}

	category := &models.Category{Name: ref.Name}
	q := s.db.NewInsert().Model(category)
	if _, err := q.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", ref.Name, queryError(q, err))
	}
	return category, nil
}

// findOrCreateCategory selects by name and inserts only when absent. A row
// inserted concurrently is kept and read back.
func (s *Store) findOrCreateCategory(ctx context.Context, name string) (*models.Category, error) {
	category, err := s.findCategory(ctx, name)
	if err == nil {
		return category, nil
	}
	if !runtime.IsNotFound(err) {
		return nil, err
	}

	const insert = "INSERT INTO categories (name) VALUES (?) ON CONFLICT (name) DO NOTHING"
	if _, err := s.db.ExecContext(ctx, insert, name); err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, runtime.NewQueryError(insert, err))
	}
	return s.findCategory(ctx, name)
}

func (s *Store) findCategory(ctx context.Context, name string) (*models.Category, error) {
	category := new(models.Category)
	q := s.db.NewSelect().Model(category).Where("c.name = ?", name)
	if err := q.Scan(ctx); err != nil {
		return nil, queryError(q, err)
	}
	return category, nil
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
	q := s.db.NewInsert().Model(&models.CategoryAndMovie{MovieID: movieID, CategoryID: categoryID})
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("failed to link movie %d to category %d: %w", movieID, categoryID, queryError(q, err))
	}
	return nil
}

// AddCategoryToMovie resolves the category by name and links it to the movie.
func (s *Store) AddCategoryToMovie(ctx context.Context, movieID int64, category string) (*models.Movie, error) {
	var movie *models.Movie
	err := s.withTx(ctx, func(t *Store) error {
		exists, err := t.db.NewSelect().Model((*models.Movie)(nil)).Where("m.id = ?", movieID).Exists(ctx)
		if err != nil {
			return runtime.Classify(err)
		}
		if !exists {
			return fmt.Errorf("movie %d: %w", movieID, runtime.ErrNotFound)
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
	names := s.db.NewSelect().Model((*models.Category)(nil)).Column("id").Where("name = ?", category)
	q := s.db.NewDelete().
		Model((*models.CategoryAndMovie)(nil)).
		Where("movie_id = ?", movieID).
		Where("category_id IN (?)", names)

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to remove category %q from movie %d: %w", category, movieID, queryError(q, err))
	}
	return rowsAffected(res), nil
}

// FindCategoryLinks walks from a category name back to its movies.
func (s *Store) FindCategoryLinks(ctx context.Context, category string) ([]*models.CategoryAndMovie, error) {
	links := make([]*models.CategoryAndMovie, 0)
	q := s.db.NewSelect().
		Model(&links).
		Relation("Category").
		Relation("Movie").
		Relation("Movie.Detail").
		Relation("Movie.User").
		Where("category.name = ?", category).
		Order("cm.movie_id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, queryError(q, err)
	}
	return links, nil
}
