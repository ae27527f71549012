package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
	"github.com/marshallshelly/cinema-seed/pkg/seed"
	"github.com/marshallshelly/cinema-seed/pkg/store"
	"github.com/marshallshelly/cinema-seed/pkg/store/sqlite"
)

var fixedNow = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type recorded struct {
	name  string
	value any
}

func recorder(into *[]recorded) seed.Reporter {
	return seed.ReporterFunc(func(name, _ string, value any) {
		*into = append(*into, recorded{name: name, value: value})
	})
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	var steps []recorded
	core, logs := observer.New(zapcore.DebugLevel)
	runner := seed.NewRunner(s,
		seed.WithClock(clock),
		seed.WithReporter(recorder(&steps)),
		seed.WithLogger(zap.New(core)),
	)

	rep, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RunID)

	// Seed
	require.Len(t, rep.User.Movies, 2)
	jedi := rep.User.Movies[0]
	assert.Equal(t, "O Retorno do Jedi Espacial", jedi.Title)
	assert.Equal(t, []string{seed.SciFiCategory, "Aventura"}, jedi.CategoryNames())
	require.NotNil(t, jedi.Director)
	assert.Equal(t, seed.OriginalDirector, jedi.Director.Name)
	assert.Equal(t, "O Segredo do Vale", rep.User.Movies[1].Title)
	assert.Nil(t, rep.User.Movies[1].Director)

	// Queries
	require.Len(t, rep.UserWithMovies.Movies, 2)
	require.Len(t, rep.SciFiLinks, 1)
	assert.Equal(t, jedi.ID, rep.SciFiLinks[0].Movie.ID)
	assert.Equal(t, "Cinéfilo João", rep.SciFiLinks[0].Movie.User.Name)
	require.Len(t, rep.DirectorsWithCount, 1)
	assert.Equal(t, seed.OriginalDirector, rep.DirectorsWithCount[0].Name)
	assert.Equal(t, 1, rep.DirectorsWithCount[0].Count.Movies)

	// Mutations
	assert.ElementsMatch(t, []string{seed.SciFiCategory, "Aventura", seed.ActionCategory}, rep.MovieWithNewCategory.CategoryNames())
	require.NotNil(t, rep.MovieWithNewDirector.Director)
	assert.Equal(t, seed.NewDirectorName, rep.MovieWithNewDirector.Director.Name)
	assert.Equal(t, seed.NewMovieTitle, rep.NewMovie.Title)
	assert.True(t, fixedNow.Equal(rep.NewMovie.ReleaseDate))
	assert.Equal(t, rep.TransactionDetail.ID, rep.NewMovie.DetailID)
	assert.Equal(t, []string{seed.ComedyCategory}, rep.NewMovie.CategoryNames())

	// Deletions. The first movie was already moved to the new director, so
	// deleting the original one leaves it untouched.
	assert.EqualValues(t, 1, rep.RemovedCategoryLinks)
	assert.True(t, rep.DirectorDeleted)
	require.NotNil(t, rep.AffectedMovie)
	require.NotNil(t, rep.AffectedMovie.Director)
	assert.Equal(t, seed.NewDirectorName, rep.AffectedMovie.Director.Name)

	// Final state
	require.Len(t, rep.FinalUser.Movies, 3)
	assert.Equal(t, []string{seed.SciFiCategory, "Aventura"}, rep.FinalUser.Movies[0].CategoryNames())
	assert.Equal(t, seed.NewMovieTitle, rep.FinalUser.Movies[2].Title)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TableCounts{
		CategoryAndMovies: 4,
		Movies:            3,
		MovieDetails:      3,
		Directors:         1,
		Categories:        5,
		Users:             1,
	}, counts)

	names := make([]string, 0, len(steps))
	for _, step := range steps {
		names = append(names, step.name)
	}
	want := make([]string, 0)
	for _, info := range seed.Steps() {
		want = append(want, info.Name)
	}
	assert.Equal(t, want, names)

	finished := logs.FilterMessage("run finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, rep.RunID, finished[0].ContextMap()["run_id"])
}

func TestRun_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	runner := seed.NewRunner(s, seed.WithClock(clock))

	_, err := runner.Run(ctx)
	require.NoError(t, err)
	first, err := s.Counts(ctx)
	require.NoError(t, err)

	_, err = runner.Run(ctx)
	require.NoError(t, err)
	second, err := s.Counts(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReset_Twice(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	runner := seed.NewRunner(s)

	_, err := runner.Run(ctx)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, runner.Reset(ctx))
		counts, err := s.Counts(ctx)
		require.NoError(t, err)
		assert.Zero(t, counts.Total())
	}
}

func TestScenario_DirectorDeletionNullsMovie(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	runner := seed.NewRunner(s)
	rep := &seed.Report{}

	require.NoError(t, runner.Reset(ctx))
	require.NoError(t, runner.Seed(ctx, rep))
	require.NoError(t, runner.Queries(ctx, rep))
	require.Len(t, rep.SciFiLinks, 1)
	assert.Equal(t, "O Retorno do Jedi Espacial", rep.SciFiLinks[0].Movie.Title)

	require.NoError(t, runner.AddCategory(ctx, rep))
	require.NoError(t, runner.RemoveCategory(ctx, rep))
	require.NoError(t, runner.DeleteDirector(ctx, rep))

	assert.True(t, rep.DirectorDeleted)
	require.NotNil(t, rep.AffectedMovie)
	assert.Nil(t, rep.AffectedMovie.Director)

	movie, err := s.FindMovie(ctx, rep.User.Movies[0].ID)
	require.NoError(t, err)
	assert.Nil(t, movie.DirectorID)
	assert.ElementsMatch(t, []string{seed.SciFiCategory, "Aventura"}, movie.CategoryNames())
}

func TestDeleteDirector_MissingIsSkipped(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	fixture := seed.Fixture()
	fixture.Movies[0].Director = nil

	var steps []recorded
	runner := seed.NewRunner(s, seed.WithFixture(fixture), seed.WithReporter(recorder(&steps)))
	rep := &seed.Report{}

	require.NoError(t, runner.Seed(ctx, rep))
	require.NoError(t, runner.DeleteDirector(ctx, rep))

	assert.False(t, rep.DirectorDeleted)
	assert.Nil(t, rep.AffectedMovie)
	require.Len(t, steps, 2)
	assert.Equal(t, seed.StepDeleteDirector, steps[1].name)
	assert.Nil(t, steps[1].value)
}

func TestCategoryDramaIsNotDuplicated(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	rep, err := seed.NewRunner(s).Run(ctx)
	require.NoError(t, err)
	before, err := s.Counts(ctx)
	require.NoError(t, err)

	drama := rep.User.Movies[1].Categories[0].Category
	again, err := s.UpsertCategory(ctx, "Drama")
	require.NoError(t, err)
	assert.Equal(t, drama.ID, again.ID)

	after, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Categories, after.Categories)
}

// failingUpsert forces the category upsert inside a transaction to violate
// the non-empty name check.
type failingUpsert struct {
	store.Store
}

func (f failingUpsert) UpsertCategory(ctx context.Context, _ string) (*models.Category, error) {
	return f.Store.UpsertCategory(ctx, "")
}

func (f failingUpsert) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.InTx(ctx, func(tx store.Store) error {
		return fn(failingUpsert{tx})
	})
}

func TestCreateInTransaction_RollsBackDetail(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	runner := seed.NewRunner(failingUpsert{s})
	rep := &seed.Report{}

	require.NoError(t, runner.Seed(ctx, rep))
	before, err := s.Counts(ctx)
	require.NoError(t, err)

	err = runner.CreateInTransaction(ctx, rep)
	require.Error(t, err)
	assert.ErrorIs(t, err, runtime.ErrCheckViolation)

	var stepErr *seed.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, seed.StepTransaction, stepErr.Step)

	after, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Nil(t, rep.TransactionDetail)
	assert.Nil(t, rep.NewMovie)
}

func TestSteps_RequireSeed(t *testing.T) {
	ctx := context.Background()
	runner := seed.NewRunner(openStore(t))
	empty := &seed.Report{}

	for _, step := range []func(context.Context, *seed.Report) error{
		runner.Queries,
		runner.AddCategory,
		runner.ReassignDirector,
		runner.CreateInTransaction,
		runner.RemoveCategory,
		runner.DeleteDirector,
		runner.Final,
	} {
		assert.ErrorIs(t, step(ctx, empty), seed.ErrNotSeeded)
	}
}

func TestRun_FailureNamesStep(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Close())

	rep, err := seed.NewRunner(s).Run(ctx)
	require.Error(t, err)
	require.NotNil(t, rep)

	var stepErr *seed.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, seed.StepReset, stepErr.Step)
}
