package sqlite

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

// CreateUser inserts the user, then each movie's dependencies before the
// movie itself, all in one transaction.
func (s *Store) CreateUser(ctx context.Context, in models.NewUser) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.withTx(ctx, func(t *Store) error {
		row := &models.User{Name: in.Name, Email: in.Email}
		q := t.db.NewInsert().Model(row)
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert user: %w", queryError(q, err))
		}

		for i, movie := range in.Movies {
			if _, err := t.insertMovieGraph(ctx, row.ID, movie); err != nil {
				return fmt.Errorf("movies[%d]: %w", i, err)
			}
		}

		var err error
		user, err = t.FindUser(ctx, row.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUser loads a user with its full movie graph.
func (s *Store) FindUser(ctx context.Context, id int64) (*models.User, error) {
	user := new(models.User)
	q := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Relation("Movies", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("m.id ASC")
		}).
		Relation("Movies.Detail").
		Relation("Movies.Director").
		Relation("Movies.Categories", orderLinks).
		Relation("Movies.Categories.Category")

	if err := q.Scan(ctx); err != nil {
		return nil, queryError(q, err)
	}

	if user.Movies == nil {
		user.Movies = make([]*models.Movie, 0)
	}
	for _, m := range user.Movies {
		normalizeMovie(m)
	}
	return user, nil
}

// DeleteUser removes the user. Movies and join rows follow through ON DELETE
// CASCADE; the details those movies referenced are removed afterwards.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(t *Store) error {
		var detailIDs []int64
		sel := t.db.NewSelect().Model((*models.Movie)(nil)).Column("detail_id").Where("user_id = ?", id)
		if err := sel.Scan(ctx, &detailIDs); err != nil {
			return queryError(sel, err)
		}

		del := t.db.NewDelete().Model((*models.User)(nil)).Where("id = ?", id)
		res, err := del.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete user %d: %w", id, queryError(del, err))
		}
		if rowsAffected(res) == 0 {
			return fmt.Errorf("user %d: %w", id, runtime.ErrNotFound)
		}

		if len(detailIDs) > 0 {
			q := t.db.NewDelete().Model((*models.MovieDetail)(nil)).Where("id IN (?)", bun.In(detailIDs))
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("failed to delete movie details: %w", queryError(q, err))
			}
		}
		return nil
	})
}
