package sqlite

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

func orderLinks(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("cm.category_id ASC")
}

// normalizeMovie clears relations bun leaves half-filled for NULL joins and
// turns a missing category list into an empty one.
func normalizeMovie(m *models.Movie) {
	if m.DirectorID == nil {
		m.Director = nil
	}
	if m.Categories == nil {
		m.Categories = make([]*models.CategoryAndMovie, 0)
	}
}

// insertMovieGraph creates the rows a movie depends on, then the movie and
// its category links. It must run inside a transaction.
func (s *Store) insertMovieGraph(ctx context.Context, userID int64, in models.NewMovie) (int64, error) {
	detail, err := s.CreateMovieDetail(ctx, in.Detail)
	if err != nil {
		return 0, err
	}

	var directorID *int64
	if in.Director != nil {
		director, err := s.CreateDirector(ctx, in.Director.Name)
		if err != nil {
			return 0, err
		}
		directorID = &director.ID
	}

	categoryIDs := make([]int64, 0, len(in.Categories))
	for _, ref := range in.Categories {
		category, err := s.resolveCategory(ctx, ref)
		if err != nil {
			return 0, err
		}
		categoryIDs = append(categoryIDs, category.ID)
	}

	return s.insertMovie(ctx, models.MovieInput{
		Title:       in.Title,
		ReleaseDate: in.ReleaseDate,
		DetailID:    detail.ID,
		UserID:      userID,
		DirectorID:  directorID,
		CategoryIDs: categoryIDs,
	})
}

func (s *Store) insertMovie(ctx context.Context, in models.MovieInput) (int64, error) {
	row := &models.Movie{
		Title:       in.Title,
		ReleaseDate: in.ReleaseDate,
		DetailID:    in.DetailID,
		DirectorID:  in.DirectorID,
		UserID:      in.UserID,
	}
	q := s.db.NewInsert().Model(row)
	if _, err := q.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert movie %q: %w", in.Title, queryError(q, err))
	}

	for _, categoryID := range in.CategoryIDs {
		if err := s.link(ctx, row.ID, categoryID); err != nil {
			return 0, err
		}
	}
	return row.ID, nil
}

// CreateMovie inserts a movie that references an existing detail and user.
func (s *Store) CreateMovie(ctx context.Context, in models.MovieInput) (*models.Movie, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var movie *models.Movie
	err := s.withTx(ctx, func(t *Store) error {
		movieID, err := t.insertMovie(ctx, in)
		if err != nil {
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

// CreateMovieDetail inserts a detail row.
func (s *Store) CreateMovieDetail(ctx context.Context, in models.NewMovieDetail) (*models.MovieDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	detail := &models.MovieDetail{Duration: in.Duration, Description: in.Description}
	q := s.db.NewInsert().Model(detail)
	if _, err := q.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to insert movie detail: %w", queryError(q, err))
	}
	return detail, nil
}

// FindMovie loads one movie with detail, director and categories.
func (s *Store) FindMovie(ctx context.Context, id int64) (*models.Movie, error) {
	movie := new(models.Movie)
	q := s.db.NewSelect().
		Model(movie).
		Where("m.id = ?", id).
		Relation("Detail").
		Relation("Director").
		Relation("Categories", orderLinks).
		Relation("Categories.Category")

	if err := q.Scan(ctx); err != nil {
		if runtime.IsNotFound(runtime.Classify(err)) {
			return nil, fmt.Errorf("movie %d: %w", id, runtime.ErrNotFound)
		}
		return nil, queryError(q, err)
	}

	normalizeMovie(movie)
	return movie, nil
}
