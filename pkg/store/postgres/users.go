package postgres

import (
	"context"
	"fmt"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

// CreateUser inserts the user, then each movie's detail, director and
// categories before the movie row that references them, all in one transaction.
func (s *Store) CreateUser(ctx context.Context, in models.NewUser) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.withTx(ctx, func(t *Store) error {
		userID, err := t.insertID(ctx,
			"INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id",
			in.Name, in.Email,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}

		for i, movie := range in.Movies {
			if _, err := t.insertMovieGraph(ctx, userID, movie); err != nil {
				return fmt.Errorf("movies[%d]: %w", i, err)
			}
		}

		user, err = t.FindUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUser loads a user with its full movie graph.
func (s *Store) FindUser(ctx context.Context, id int64) (*models.User, error) {
	const query = "SELECT id, name, email FROM users WHERE id = $1"

	var user models.User
	if err := s.q.QueryRow(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email); err != nil {
		return nil, runtime.NewQueryError(query, err)
	}

	movies, err := s.loadMovies(ctx, "m.user_id = $1", id)
	if err != nil {
		return nil, err
	}
	if err := s.attachCategories(ctx, movies); err != nil {
		return nil, err
	}
	user.Movies = movies

	return &user, nil
}

// DeleteUser removes the user; movies and join rows follow through ON DELETE
// CASCADE and the details those movies referenced are removed afterwards.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(t *Store) error {
		const detailsQuery = "SELECT detail_id FROM movies WHERE user_id = $1"

		rows, err := t.q.Query(ctx, detailsQuery, id)
		if err != nil {
			return runtime.NewQueryError(detailsQuery, err)
		}
		var detailIDs []int64
		for rows.Next() {
			var detailID int64
			if err := rows.Scan(&detailID); err != nil {
				rows.Close()
				return runtime.NewQueryError(detailsQuery, err)
			}
			detailIDs = append(detailIDs, detailID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return runtime.NewQueryError(detailsQuery, err)
		}

		deleted, err := t.exec(ctx, "DELETE FROM users WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete user %d: %w", id, err)
		}
		if deleted == 0 {
			return fmt.Errorf("user %d: %w", id, runtime.ErrNotFound)
		}

		if len(detailIDs) > 0 {
			if _, err := t.exec(ctx, "DELETE FROM movie_details WHERE id = ANY($1)", detailIDs); err != nil {
				return fmt.Errorf("failed to delete movie details: %w", err)
			}
		}
		return nil
	})
}
