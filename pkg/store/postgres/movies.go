package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

const movieColumns = `
	m.id, m.title, m.release_date, m.detail_id, m.director_id, m.user_id,
	md.id, md.duration, md.description,
	d.id, d.name`

const movieFrom = `
	FROM movies m
	JOIN movie_details md ON md.id = m.detail_id
	LEFT JOIN directors d ON d.id = m.director_id`

// insertMovieGraph creates the rows a movie depends on, then the movie and its
// category links. It must run inside a transaction.
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
	movieID, err := s.insertID(ctx,
		`INSERT INTO movies (title, release_date, detail_id, director_id, user_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		in.Title, in.ReleaseDate, in.DetailID, in.DirectorID, in.UserID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert movie %q: %w", in.Title, err)
	}

	for _, categoryID := range in.CategoryIDs {
		if err := s.link(ctx, movieID, categoryID); err != nil {
			return 0, err
		}
	}
	return movieID, nil
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

	id, err := s.insertID(ctx,
		"INSERT INTO movie_details (duration, description) VALUES ($1, $2) RETURNING id",
		in.Duration, in.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert movie detail: %w", err)
	}
	return &models.MovieDetail{ID: id, Duration: in.Duration, Description: in.Description}, nil
}

// FindMovie loads one movie with detail, director and categories.
func (s *Store) FindMovie(ctx context.Context, id int64) (*models.Movie, error) {
	movies, err := s.loadMovies(ctx, "m.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, fmt.Errorf("movie %d: %w", id, runtime.ErrNotFound)
	}
	if err := s.attachCategories(ctx, movies); err != nil {
		return nil, err
	}
	return movies[0], nil
}

func (s *Store) loadMovies(ctx context.Context, where string, args ...any) ([]*models.Movie, error) {
	query := "SELECT " + movieColumns + movieFrom + " WHERE " + where + " ORDER BY m.id"

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, runtime.NewQueryError(query, err)
	}
	defer rows.Close()

	movies := make([]*models.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, runtime.NewQueryError(query, err)
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, runtime.NewQueryError(query, err)
	}
	return movies, nil
}

// scanMovie reads movieColumns into a movie with its detail and optional director.
func scanMovie(row pgx.Row) (*models.Movie, error) {
	var (
		movie        models.Movie
		detail       models.MovieDetail
		directorID   *int64
		directorName *string
	)

	err := row.Scan(
		&movie.ID, &movie.Title, &movie.ReleaseDate, &movie.DetailID, &movie.DirectorID, &movie.UserID,
		&detail.ID, &detail.Duration, &detail.Description,
		&directorID, &directorName,
	)
	if err != nil {
		return nil, err
	}

	movie.Detail = &detail
	if directorID != nil {
		movie.Director = &models.Director{ID: *directorID, Name: *directorName}
	}
	return &movie, nil
}

func (s *Store) attachCategories(ctx context.Context, movies []*models.Movie) error {
	if len(movies) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Movie, len(movies))
	ids := make([]int64, 0, len(movies))
	for _, m := range movies {
		m.Categories = make([]*models.CategoryAndMovie, 0)
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	const query = `
		SELECT cm.movie_id, cm.category_id, c.name
		FROM category_and_movies cm
		JOIN categories c ON c.id = cm.category_id
		WHERE cm.movie_id = ANY($1)
		ORDER BY cm.movie_id, cm.category_id`

	rows, err := s.q.Query(ctx, query, ids)
	if err != nil {
		return runtime.NewQueryError(query, err)
	}
	defer rows.Close()

	for rows.Next() {
		var link models.CategoryAndMovie
		var name string
		if err := rows.Scan(&link.MovieID, &link.CategoryID, &name); err != nil {
			return runtime.NewQueryError(query, err)
		}
		link.Category = &models.Category{ID: link.CategoryID, Name: name}
		movie := byID[link.MovieID]
		movie.Categories = append(movie.Categories, &link)
	}
	return runtime.NewQueryError(query, rows.Err())
}
