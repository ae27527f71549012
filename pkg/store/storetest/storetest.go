// Package storetest holds behaviour checks every store.Store implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
	"github.com/marshallshelly/cinema-seed/pkg/store"
)

// Factory returns an empty store with the cinema schema applied.
type Factory func(t *testing.T) store.Store

var releaseDate = time.Date(1983, time.May, 25, 0, 0, 0, 0, time.UTC)

func movie(title, director string, categories ...models.CategoryRef) models.NewMovie {
	m := models.NewMovie{
		Title:       title,
		ReleaseDate: releaseDate,
		Detail:      models.NewMovieDetail{Duration: 120, Description: title + " description"},
		Categories:  categories,
	}
	if director != "" {
		m.Director = &models.NewDirector{Name: director}
	}
	return m
}

func connect(name string) models.CategoryRef {
	return models.CategoryRef{Name: name, Mode: models.CategoryConnectOrCreate}
}

func create(name string) models.CategoryRef {
	return models.CategoryRef{Name: name, Mode: models.CategoryCreate}
}

func mustCounts(t *testing.T, s store.Store) models.TableCounts {
	t.Helper()
	counts, err := s.Counts(context.Background())
	require.NoError(t, err)
	return counts
}

// Run executes the whole suite. Each subtest gets a fresh store from open.
func Run(t *testing.T, open Factory) {
	t.Run("CreateUserLoadsGraph", func(t *testing.T) { testCreateUserLoadsGraph(t, open(t)) })
	t.Run("ResetIsIdempotent", func(t *testing.T) { testResetIsIdempotent(t, open(t)) })
	t.Run("ConnectOrCreateReusesCategory", func(t *testing.T) { testConnectOrCreateReusesCategory(t, open(t)) })
	t.Run("NestedCreateIsAtomic", func(t *testing.T) { testNestedCreateIsAtomic(t, open(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, open(t)) })
	t.Run("ValidationBeforeWrite", func(t *testing.T) { testValidationBeforeWrite(t, open(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, open(t)) })
	t.Run("CategoryLinks", func(t *testing.T) { testCategoryLinks(t, open(t)) })
	t.Run("AddAndRemoveCategory", func(t *testing.T) { testAddAndRemoveCategory(t, open(t)) })
	t.Run("UpsertCategory", func(t *testing.T) { testUpsertCategory(t, open(t)) })
	t.Run("DirectorCounts", func(t *testing.T) { testDirectorCounts(t, open(t)) })
	t.Run("DeleteDirectorSetsNull", func(t *testing.T) { testDeleteDirectorSetsNull(t, open(t)) })
	t.Run("SetMovieDirector", func(t *testing.T) { testSetMovieDirector(t, open(t)) })
	t.Run("CreateMovieFromExistingRows", func(t *testing.T) { testCreateMovieFromExistingRows(t, open(t)) })
	t.Run("DeleteUserCascades", func(t *testing.T) { testDeleteUserCascades(t, open(t)) })
	t.Run("InTx", func(t *testing.T) { testInTx(t, open(t)) })
}

func testCreateUserLoadsGraph(t *testing.T, s store.Store) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, models.NewUser{
		Name:  "Ana",
		Email: "ana@example.com",
		Movies: []models.NewMovie{
			movie("Primeiro", "Diretora Um", create("Drama"), create("Suspense")),
			movie("Segundo", ""),
		},
	})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "Ana", user.Name)
	require.Len(t, user.Movies, 2)

	first := user.Movies[0]
	assert.Equal(t, "Primeiro", first.Title)
	assert.Equal(t, user.ID, first.UserID)
	assert.True(t, releaseDate.Equal(first.ReleaseDate), "release date %v", first.ReleaseDate)
	require.NotNil(t, first.Detail)
	assert.Equal(t, 120, first.Detail.Duration)
	assert.Equal(t, first.DetailID, first.Detail.ID)
	require.NotNil(t, first.Director)
	assert.Equal(t, "Diretora Um", first.Director.Name)
	assert.Equal(t, []string{"Drama", "Suspense"}, first.CategoryNames())

	second := user.Movies[1]
	assert.Equal(t, "Segundo", second.Title)
	assert.Nil(t, second.Director)
	assert.Nil(t, second.DirectorID)
	assert.Empty(t, second.CategoryNames())

	counts := mustCounts(t, s)
	assert.Equal(t, models.TableCounts{
		CategoryAndMovies: 2, Movies: 2, MovieDetails: 2, Directors: 1, Categories: 2, Users: 1,
	}, counts)

	found, err := s.FindUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)
	require.Len(t, found.Movies, 2)
	assert.Equal(t, first.ID, found.Movies[0].ID)
}

func testResetIsIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.Reset(ctx))

	_, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{movie("Primeiro", "Diretora", create("Drama"))},
	})
	require.NoError(t, err)
	require.NotZero(t, mustCounts(t, s).Total())

	require.NoError(t, s.Reset(ctx))
	assert.Zero(t, mustCounts(t, s).Total())
	require.NoError(t, s.Reset(ctx))
	assert.Zero(t, mustCounts(t, s).Total())
}

func testConnectOrCreateReusesCategory(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{movie("Primeiro", "", connect("Drama"))},
	})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, models.NewUser{
		Name: "Bia", Email: "bia@example.com",
		Movies: []models.NewMovie{
			movie("Segundo", "", connect("Drama")),
			movie("Terceiro", "", connect("Drama"), connect("Comédia")),
		},
	})
	require.NoError(t, err)

	counts := mustCounts(t, s)
	assert.EqualValues(t, 2, counts.Categories)
	assert.EqualValues(t, 4, counts.CategoryAndMovies)

	links, err := s.FindCategoryLinks(ctx, "Drama")
	require.NoError(t, err)
	assert.Len(t, links, 3)
}

func testNestedCreateIsAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{movie("Primeiro", "", create("Drama"))},
	})
	require.NoError(t, err)
	before := mustCounts(t, s)

	// The second movie re-creates "Drama" after the user, a detail and a
	// director have already been inserted.
	_, err = s.CreateUser(ctx, models.NewUser{
		Name: "Bia", Email: "bia@example.com",
		Movies: []models.NewMovie{
			movie("Segundo", "Diretor", create("Aventura")),
			movie("Terceiro", "", create("Drama")),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, runtime.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "movies[1]")

	assert.Equal(t, before, mustCounts(t, s))
}

func testDuplicateEmail(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.CreateUser(ctx, models.NewUser{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, models.NewUser{Name: "Outra Ana", Email: "ana@example.com"})
	assert.ErrorIs(t, err, runtime.ErrDuplicateKey)
	assert.True(t, runtime.IsDuplicateKey(err))
	assert.EqualValues(t, 1, mustCounts(t, s).Users)
}

func testValidationBeforeWrite(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{movie("Primeiro", "", create(""))},
	})
	var verr *runtime.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "categories[0].name", verr.Field)

	_, err = s.CreateMovieDetail(ctx, models.NewMovieDetail{Duration: 0, Description: "x"})
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "duration", verr.Field)

	assert.Zero(t, mustCounts(t, s).Total())
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.FindUser(ctx, 404)
	assert.ErrorIs(t, err, runtime.ErrNotFound)

	_, err = s.FindMovie(ctx, 404)
	assert.ErrorIs(t, err, runtime.ErrNotFound)

	_, err = s.FindDirectorByName(ctx, "Ninguém")
	assert.ErrorIs(t, err, runtime.ErrNotFound)

	_, err = s.FindMovieDirector(ctx, 404)
	assert.ErrorIs(t, err, runtime.ErrNotFound)

	assert.ErrorIs(t, s.DeleteUser(ctx, 404), runtime.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDirector(ctx, 404), runtime.ErrNotFound)

	_, err = s.AddCategoryToMovie(ctx, 404, "Drama")
	assert.ErrorIs(t, err, runtime.ErrNotFound)
	assert.Zero(t, mustCounts(t, s).Categories)

	links, err := s.FindCategoryLinks(ctx, "Nada")
	require.NoError(t, err)
	assert.NotNil(t, links)
	assert.Empty(t, links)

	directors, err := s.ListDirectorsWithCount(ctx)
	require.NoError(t, err)
	assert.NotNil(t, directors)
	assert.Empty(t, directors)
}

func testCategoryLinks(t *testing.T, s store.Store) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{
			movie("Primeiro", "", create("Ficção Científica"), create("Aventura")),
			movie("Segundo", "", connect("Aventura")),
		},
	})
	require.NoError(t, err)

	links, err := s.FindCategoryLinks(ctx, "Ficção Científica")
	require.NoError(t, err)
	require.Len(t, links, 1)

	link := links[0]
	assert.Equal(t, user.Movies[0].ID, link.MovieID)
	require.NotNil(t, link.Category)
	assert.Equal(t, "Ficção Científica", link.Category.Name)
	require.NotNil(t, link.Movie)
	assert.Equal(t, "Primeiro", link.Movie.Title)
	require.NotNil(t, link.Movie.Detail)
	assert.Equal(t, "Primeiro description", link.Movie.Detail.Description)
	require.NotNil(t, link.Movie.User)
	assert.Equal(t, "ana@example.com", link.Movie.User.Email)

	links, err = s.FindCategoryLinks(ctx, "Aventura")
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func testAddAndRemoveCategory(t *testing.T, s store.Store) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{movie("Primeiro", "", create("Ficção Científica"), create("Aventura"))},
	})
	require.NoError(t, err)
	movieID := user.Movies[0].ID

	updated, err := s.AddCategoryToMovie(ctx, movieID, "Ação")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Ficção Científica", "Aventura", "Ação"}, updated.CategoryNames())

	_, err = s.AddCategoryToMovie(ctx, movieID, "Ação")
	assert.ErrorIs(t, err, runtime.ErrDuplicateKey)

	removed, err := s.RemoveCategoryFromMovie(ctx, movieID, "Ação")
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	removed, err = s.RemoveCategoryFromMovie(ctx, movieID, "Ação")
	require.NoError(t, err)
	assert.Zero(t, removed)

	found, err := s.FindMovie(ctx, movieID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Ficção Científica", "Aventura"}, found.CategoryNames())

	// Unlinking never deletes the category itself.
	assert.EqualValues(t, 3, mustCounts(t, s).Categories)
}

func testUpsertCategory(t *testing.T, s store.Store) {
	ctx := context.Background()

	first, err := s.UpsertCategory(ctx, "Drama")
	require.NoError(t, err)
	second, err := s.UpsertCategory(ctx, "Drama")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, mustCounts(t, s).Categories)

	_, err = s.UpsertCategory(ctx, "")
	assert.ErrorIs(t, err, runtime.ErrCheckViolation)
}

func testDirectorCounts(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{movie("Primeiro", "Diretora"), movie("Segundo", "")},
	})
	require.NoError(t, err)
	idle, err := s.CreateDirector(ctx, "Sem Filmes")
	require.NoError(t, err)

	directors, err := s.ListDirectorsWithCount(ctx)
	require.NoError(t, err)
	require.Len(t, directors, 2)

	assert.Equal(t, "Diretora", directors[0].Name)
	assert.Equal(t, 1, directors[0].Count.Movies)
	assert.Equal(t, idle.ID, directors[1].ID)
	assert.Equal(t, 0, directors[1].Count.Movies)

	found, err := s.FindDirectorByName(ctx, "Diretora")
	require.NoError(t, err)
	assert.Equal(t, directors[0].ID, found.ID)
}

func testDeleteDirectorSetsNull(t *testing.T, s store.Store) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{movie("Primeiro", "Diretora", create("Drama"))},
	})
	require.NoError(t, err)
	m := user.Movies[0]
	require.NotNil(t, m.Director)

	require.NoError(t, s.DeleteDirector(ctx, m.Director.ID))

	director, err := s.FindMovieDirector(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, director)

	found, err := s.FindMovie(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, found.DirectorID)
	assert.Equal(t, []string{"Drama"}, found.CategoryNames())

	counts := mustCounts(t, s)
	assert.Zero(t, counts.Directors)
	assert.EqualValues(t, 1, counts.Movies)
}

func testSetMovieDirector(t *testing.T, s store.Store) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{movie("Primeiro", "Antigo")},
	})
	require.NoError(t, err)
	movieID := user.Movies[0].ID

	replacement, err := s.CreateDirector(ctx, "Novo")
	require.NoError(t, err)

	updated, err := s.SetMovieDirector(ctx, movieID, replacement.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Director)
	assert.Equal(t, "Novo", updated.Director.Name)

	director, err := s.FindMovieDirector(ctx, movieID)
	require.NoError(t, err)
	require.NotNil(t, director)
	assert.Equal(t, replacement.ID, director.ID)

	_, err = s.SetMovieDirector(ctx, 404, replacement.ID)
	assert.ErrorIs(t, err, runtime.ErrNotFound)

	_, err = s.SetMovieDirector(ctx, movieID, 404)
	assert.ErrorIs(t, err, runtime.ErrForeignKeyViolation)
}

func testCreateMovieFromExistingRows(t *testing.T, s store.Store) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, models.NewUser{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	detail, err := s.CreateMovieDetail(ctx, models.NewMovieDetail{Duration: 90, Description: "Curta"})
	require.NoError(t, err)
	category, err := s.UpsertCategory(ctx, "Drama")
	require.NoError(t, err)

	created, err := s.CreateMovie(ctx, models.MovieInput{
		Title:       "Avulso",
		ReleaseDate: releaseDate,
		DetailID:    detail.ID,
		UserID:      user.ID,
		CategoryIDs: []int64{category.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, detail.ID, created.DetailID)
	assert.Equal(t, []string{"Drama"}, created.CategoryNames())

	// A detail belongs to exactly one movie.
	_, err = s.CreateMovie(ctx, models.MovieInput{
		Title: "Repetido", ReleaseDate: releaseDate, DetailID: detail.ID, UserID: user.ID,
	})
	assert.ErrorIs(t, err, runtime.ErrDuplicateKey)

	_, err = s.CreateMovie(ctx, models.MovieInput{
		Title: "Órfão", ReleaseDate: releaseDate, DetailID: 404, UserID: user.ID,
	})
	assert.ErrorIs(t, err, runtime.ErrForeignKeyViolation)

	assert.EqualValues(t, 1, mustCounts(t, s).Movies)
}

func testDeleteUserCascades(t *testing.T, s store.Store) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, models.NewUser{
		Name: "Ana", Email: "ana@example.com",
		Movies: []models.NewMovie{
			movie("Primeiro", "Diretora", create("Drama")),
			movie("Segundo", "", connect("Drama")),
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, user.ID))

	assert.Equal(t, models.TableCounts{Directors: 1, Categories: 1}, mustCounts(t, s))

	_, err = s.FindUser(ctx, user.ID)
	assert.ErrorIs(t, err, runtime.ErrNotFound)
}

func testInTx(t *testing.T, s store.Store) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := s.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.CreateDirector(ctx, "Descartado"); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return tx.InTx(ctx, func(inner store.Store) error {
			if _, err := inner.UpsertCategory(ctx, "Descartada"); err != nil {
				return err
			}
			return errBoom
		})
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, mustCounts(t, s).Total())

	err = s.InTx(ctx, func(tx store.Store) error {
		_, err := tx.CreateDirector(ctx, "Mantido")
		return err
	})
	require.NoError(t, err)

	found, err := s.FindDirectorByName(ctx, "Mantido")
	require.NoError(t, err)
	assert.Equal(t, "Mantido", found.Name)
}
