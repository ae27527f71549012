// Package store defines the relational boundary the seed runner talks to.
//
// Implementations live in the postgres (pgx) and sqlite (bun) subpackages.
// Every implementation must honour the same contract:
//
//   - single-row lookups return runtime.ErrNotFound when nothing matches;
//     list lookups return an empty slice instead;
//   - constraint failures are classified with runtime.Classify;
//   - nested creates, find-or-create and the user cascade run inside one transaction;
//   - InTx joins an outer transaction when called on a tx-bound Store.
package store

import (
	"context"

	"github.com/marshallshelly/cinema-seed/pkg/models"
)

// Store is the set of operations the seed runner issues against the database.
type Store interface {
	// Reset deletes every row from the six cinema tables, children first.
	Reset(ctx context.Context) error
	// Counts returns the number of rows per table.
	Counts(ctx context.Context) (models.TableCounts, error)

	// CreateUser inserts a user and its nested movie graph and returns it fully loaded.
	CreateUser(ctx context.Context, in models.NewUser) (*models.User, error)
	// FindUser loads a user with movies, details, directors and categories.
	FindUser(ctx context.Context, id int64) (*models.User, error)
	// DeleteUser removes a user, its movies, their join rows and their details.
	DeleteUser(ctx context.Context, id int64) error

	// FindMovie loads a movie with detail, director and categories.
	FindMovie(ctx context.Context, id int64) (*models.Movie, error)
	// CreateMovie inserts a movie from existing rows and links its categories.
	CreateMovie(ctx context.Context, in models.MovieInput) (*models.Movie, error)
	// CreateMovieDetail inserts a detail row.
	CreateMovieDetail(ctx context.Context, in models.NewMovieDetail) (*models.MovieDetail, error)

	// FindCategoryLinks returns the join rows of the named category, each with
	// its movie, the movie's detail and the owning user.
	FindCategoryLinks(ctx context.Context, category string) ([]*models.CategoryAndMovie, error)
	// AddCategoryToMovie links a category, found or created by name, to a movie.
	AddCategoryToMovie(ctx context.Context, movieID int64, category string) (*models.Movie, error)
	// RemoveCategoryFromMovie deletes the join row between a movie and the named
	// category and returns how many rows were removed.
	RemoveCategoryFromMovie(ctx context.Context, movieID int64, category string) (int64, error)
	// UpsertCategory creates the category if absent and returns the stored row.
	UpsertCategory(ctx context.Context, name string) (*models.Category, error)

	// CreateDirector inserts a director.
	CreateDirector(ctx context.Context, name string) (*models.Director, error)
	// ListDirectorsWithCount returns every director with its movie count.
	ListDirectorsWithCount(ctx context.Context) ([]models.DirectorWithCount, error)
	// FindDirectorByName returns the first director with the given name.
	FindDirectorByName(ctx context.Context, name string) (*models.Director, error)
	// DeleteDirector deletes a director; referencing movies keep a NULL director.
	DeleteDirector(ctx context.Context, id int64) error
	// SetMovieDirector points a movie at a director and returns the movie with it.
	SetMovieDirector(ctx context.Context, movieID, directorID int64) (*models.Movie, error)
	// FindMovieDirector returns the director of a movie, nil when it has none.
	FindMovieDirector(ctx context.Context, movieID int64) (*models.Director, error)

	// InTx runs fn with a Store bound to one transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// Close releases the connection. Calling it more than once is a no-op.
	Close() error
}
