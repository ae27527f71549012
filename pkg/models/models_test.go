package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/marshallshelly/cinema-seed/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMovie() NewMovie {
	return NewMovie{
		Title:       "O Segredo do Vale",
		ReleaseDate: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		Detail:      NewMovieDetail{Duration: 135, Description: "Drama emocionante em ambiente rural"},
		Categories:  []CategoryRef{{Name: "Drama", Mode: CategoryConnectOrCreate}},
	}
}

func TestNewUserValidate(t *testing.T) {
	user := NewUser{Name: "Cinéfilo João", Email: "joao@cinema.com", Movies: []NewMovie{validMovie()}}
	require.NoError(t, user.Validate())

	tests := []struct {
		name  string
		edit  func(u *NewUser)
		field string
	}{
		{"empty name", func(u *NewUser) { u.Name = " " }, "name"},
		{"email without at", func(u *NewUser) { u.Email = "joao.cinema.com" }, "email"},
		{"email ending with at", func(u *NewUser) { u.Email = "joao@" }, "email"},
		{"movie without title", func(u *NewUser) { u.Movies[0].Title = "" }, "title"},
		{"zero duration", func(u *NewUser) { u.Movies[0].Detail.Duration = 0 }, "duration"},
		{"blank category", func(u *NewUser) { u.Movies[0].Categories[0].Name = "" }, "categories[0].name"},
		{"blank director", func(u *NewUser) { u.Movies[0].Director = &NewDirector{} }, "director.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUser{Name: user.Name, Email: user.Email, Movies: []NewMovie{validMovie()}}
			tt.edit(&u)

			var verr *runtime.ValidationError
			require.ErrorAs(t, u.Validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestMovieInputValidate(t *testing.T) {
	in := MovieInput{Title: "Amor em Alto Mar", ReleaseDate: time.Now(), DetailID: 1, UserID: 1}
	assert.NoError(t, in.Validate())

	in.DetailID = 0
	var verr *runtime.ValidationError
	require.ErrorAs(t, in.Validate(), &verr)
	assert.Equal(t, "detailId", verr.Field)
}

func TestCategoryNames(t *testing.T) {
	m := &Movie{Categories: []*CategoryAndMovie{
		{Category: &Category{Name: "Ficção Científica"}},
		{},
		{Category: &Category{Name: "Aventura"}},
	}}
	assert.Equal(t, []string{"Ficção Científica", "Aventura"}, m.CategoryNames())
}

func TestDirectorWithCountJSON(t *testing.T) {
	d := DirectorWithCount{Director: Director{ID: 7, Name: "Lucas Arthuro"}, Count: DirectorCount{Movies: 1}}

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"name":"Lucas Arthuro","_count":{"movies":1}}`, string(raw))
}

func TestTableCountsTotal(t *testing.T) {
	c := TableCounts{CategoryAndMovies: 4, Movies: 3, MovieDetails: 3, Directors: 2, Categories: 5, Users: 1}
	assert.Equal(t, int64(18), c.Total())
	assert.Zero(t, TableCounts{}.Total())
}

func TestCategoryModeString(t *testing.T) {
	assert.Equal(t, "create", CategoryCreate.String())
	assert.Equal(t, "connectOrCreate", CategoryConnectOrCreate.String())
	assert.Equal(t, "CategoryMode(9)", CategoryMode(9).String())
}
