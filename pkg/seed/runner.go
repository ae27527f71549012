// Package seed runs the cinema demo: it wipes the store, seeds a user graph and
// then walks through queries, mutations and deletions in a fixed order.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
	"github.com/marshallshelly/cinema-seed/pkg/store"
)

// ErrNotSeeded is returned by steps that need the seeded user when Seed has not run.
var ErrNotSeeded = errors.New("seed step has not run")

// StepError reports which step of a run failed.
type StepError struct {
	Step string
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes the demo against a store. Steps run strictly one after
// another; a failing step aborts the run.
type Runner struct {
	store    store.Store
	logger   *zap.Logger
	reporter Reporter
	now      func() time.Time
	fixture  models.NewUser
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithReporter sets the reporter that receives every step result.
func WithReporter(reporter Reporter) Option {
	return func(r *Runner) { r.reporter = reporter }
}

// WithClock overrides time.Now, used for the release date of the movie
// created after the transaction.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithFixture replaces the seeded user graph.
func WithFixture(fixture models.NewUser) Option {
	return func(r *Runner) { r.fixture = fixture }
}

// NewRunner returns a Runner over s.
func NewRunner(s store.Store, opts ...Option) *Runner {
	r := &Runner{
		store:    s,
		logger:   zap.NewNop(),
		reporter: nopReporter{},
		now:      time.Now,
		fixture:  Fixture(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every step in order and returns the collected results. On
// failure the partial report is returned together with a *StepError.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: uuid.NewString(), StartedAt: r.now()}
	logger := r.logger.With(zap.String("run_id", rep.RunID))
	logger.Info("run started")

	phases := []func(context.Context, *Report) error{
		func(ctx context.Context, _ *Report) error { return r.Reset(ctx) },
		r.Seed,
		r.Queries,
		r.Mutations,
		r.Deletions,
		r.Final,
	}
	for _, phase := range phases {
		if err := phase(ctx, rep); err != nil {
			logger.Error("run failed", zap.Error(err))
			return rep, err
		}
	}

	rep.FinishedAt = r.now()
	logger.Info("run finished", zap.Duration("elapsed", rep.FinishedAt.Sub(rep.StartedAt)))
	return rep, nil
}

// step runs fn, logs its outcome and reports value on success.
func (r *Runner) step(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) error {
	started := time.Now()
	value, err := fn(ctx)
	if err != nil {
		return &StepError{Step: name, Err: err}
	}

	r.logger.Debug("step completed", zap.String("step", name), zap.Duration("elapsed", time.Since(started)))
	r.reporter.Step(name, title(name), value)
	return nil
}

// Reset clears the six cinema tables.
func (r *Runner) Reset(ctx context.Context) error {
	return r.step(ctx, StepReset, func(ctx context.Context) (any, error) {
		if err := r.store.Reset(ctx); err != nil {
			return nil, err
		}
		return r.store.Counts(ctx)
	})
}

// Seed creates the fixture user with its movie graph.
func (r *Runner) Seed(ctx context.Context, rep *Report) error {
	return r.step(ctx, StepSeed, func(ctx context.Context) (any, error) {
		user, err := r.store.CreateUser(ctx, r.fixture)
		if err != nil {
			return nil, err
		}
		rep.User = user
		return user, nil
	})
}

// Queries runs the three reads: the full user graph, the links of the
// science-fiction category and the director counts.
func (r *Runner) Queries(ctx context.Context, rep *Report) error {
	if rep.User == nil {
		return &StepError{Step: StepQueryUser, Err: ErrNotSeeded}
	}

	err := r.step(ctx, StepQueryUser, func(ctx context.Context) (any, error) {
		user, err := r.store.FindUser(ctx, rep.User.ID)
		if err != nil {
			return nil, err
		}
		rep.UserWithMovies = user
		return user, nil
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, StepQueryCategory, func(ctx context.Context) (any, error) {
		links, err := r.store.FindCategoryLinks(ctx, SciFiCategory)
		if err != nil {
			return nil, err
		}
		rep.SciFiLinks = links
		return links, nil
	})
	if err != nil {
		return err
	}

	return r.step(ctx, StepQueryDirectors, func(ctx context.Context) (any, error) {
		directors, err := r.store.ListDirectorsWithCount(ctx)
		if err != nil {
			return nil, err
		}
		rep.DirectorsWithCount = directors
		return directors, nil
	})
}

// Mutations adds a category, reassigns the director and runs the transactional create.
func (r *Runner) Mutations(ctx context.Context, rep *Report) error {
	if err := r.AddCategory(ctx, rep); err != nil {
		return err
	}
	if err := r.ReassignDirector(ctx, rep); err != nil {
		return err
	}
	return r.CreateInTransaction(ctx, rep)
}

// AddCategory links the action category to the first seeded movie.
func (r *Runner) AddCategory(ctx context.Context, rep *Report) error {
	movieID, ok := rep.firstMovieID()
	if !ok {
		return &StepError{Step: StepAddCategory, Err: ErrNotSeeded}
	}

	return r.step(ctx, StepAddCategory, func(ctx context.Context) (any, error) {
		movie, err := r.store.AddCategoryToMovie(ctx, movieID, ActionCategory)
		if err != nil {
			return nil, err
		}
		rep.MovieWithNewCategory = movie
		return movie, nil
	})
}

// ReassignDirector creates a new director and points the first movie at it.
func (r *Runner) ReassignDirector(ctx context.Context, rep *Report) error {
	movieID, ok := rep.firstMovieID()
	if !ok {
		return &StepError{Step: StepReassignDirector, Err: ErrNotSeeded}
	}

	return r.step(ctx, StepReassignDirector, func(ctx context.Context) (any, error) {
		director, err := r.store.CreateDirector(ctx, NewDirectorName)
		if err != nil {
			return nil, err
		}
		movie, err := r.store.SetMovieDirector(ctx, movieID, director.ID)
		if err != nil {
			return nil, err
		}
		rep.MovieWithNewDirector = movie
		return movie, nil
	})
}

// CreateInTransaction creates a detail and upserts the comedy category as one
// atomic unit, then creates a movie from both.
//
// The movie insert runs after the commit. If it fails, the detail and the
// category stay behind unreferenced.
func (r *Runner) CreateInTransaction(ctx context.Context, rep *Report) error {
	if rep.User == nil {
		return &StepError{Step: StepTransaction, Err: ErrNotSeeded}
	}

	return r.step(ctx, StepTransaction, func(ctx context.Context) (any, error) {
		var (
			detail   *models.MovieDetail
			category *models.Category
		)
		err := r.store.InTx(ctx, func(tx store.Store) error {
			var err error
			if detail, err = tx.CreateMovieDetail(ctx, TransactionDetail()); err != nil {
				return err
			}
			category, err = tx.UpsertCategory(ctx, ComedyCategory)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("transaction rolled back: %w", err)
		}
		rep.TransactionDetail = detail
		rep.TransactionCategory = category

		movie, err := r.store.CreateMovie(ctx, models.MovieInput{
			Title:       NewMovieTitle,
			ReleaseDate: r.now(),
			DetailID:    detail.ID,
			UserID:      rep.User.ID,
			CategoryIDs: []int64{category.ID},
		})
		if err != nil {
			r.logger.Warn("movie create failed after commit; detail and category are orphaned",
				zap.Int64("detail_id", detail.ID), zap.Int64("category_id", category.ID))
			return nil, err
		}
		rep.NewMovie = movie
		return movie, nil
	})
}

// Deletions unlinks the action category and deletes the original director.
func (r *Runner) Deletions(ctx context.Context, rep *Report) error {
	if err := r.RemoveCategory(ctx, rep); err != nil {
		return err
	}
	return r.DeleteDirector(ctx, rep)
}

// RemoveCategory deletes the join row between the first movie and the action category.
func (r *Runner) RemoveCategory(ctx context.Context, rep *Report) error {
	movieID, ok := rep.firstMovieID()
	if !ok {
		return &StepError{Step: StepRemoveCategory, Err: ErrNotSeeded}
	}

	return r.step(ctx, StepRemoveCategory, func(ctx context.Context) (any, error) {
		removed, err := r.store.RemoveCategoryFromMovie(ctx, movieID, ActionCategory)
		if err != nil {
			return nil, err
		}
		rep.RemovedCategoryLinks = removed
		return map[string]int64{"count": removed}, nil
	})
}

// DeleteDirector deletes the original director by name and re-reads the first
// movie's director. A missing director is skipped without error.
func (r *Runner) DeleteDirector(ctx context.Context, rep *Report) error {
	movieID, ok := rep.firstMovieID()
	if !ok {
		return &StepError{Step: StepDeleteDirector, Err: ErrNotSeeded}
	}

	director, err := r.store.FindDirectorByName(ctx, OriginalDirector)
	if runtime.IsNotFound(err) {
		r.logger.Info("director not found, skipping delete", zap.String("director", OriginalDirector))
		r.reporter.Step(StepDeleteDirector, title(StepDeleteDirector), nil)
		return nil
	}
	if err != nil {
		return &StepError{Step: StepDeleteDirector, Err: err}
	}

	return r.step(ctx, StepDeleteDirector, func(ctx context.Context) (any, error) {
		if err := r.store.DeleteDirector(ctx, director.ID); err != nil {
			return nil, err
		}
		rep.DirectorDeleted = true

		current, err := r.store.FindMovieDirector(ctx, movieID)
		if err != nil {
			return nil, err
		}
		rep.AffectedMovie = &AffectedMovie{Director: current}
		return rep.AffectedMovie, nil
	})
}

// Final re-reads the seeded user to show the end state.
func (r *Runner) Final(ctx context.Context, rep *Report) error {
	if rep.User == nil {
		return &StepError{Step: StepFinal, Err: ErrNotSeeded}
	}

	return r.step(ctx, StepFinal, func(ctx context.Context) (any, error) {
		user, err := r.store.FindUser(ctx, rep.User.ID)
		if err != nil {
			return nil, err
		}
		rep.FinalUser = user
		return user, nil
	})
}
