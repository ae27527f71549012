// Package models defines the cinema entities and the nested-write payloads
// used to create them.
package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User owns zero or more movies.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u" json:"-"`

	ID     int64    `bun:"id,pk,autoincrement" json:"id"`
	Name   string   `bun:"name,notnull" json:"name"`
	Email  string   `bun:"email,notnull,unique" json:"email"`
	Movies []*Movie `bun:"rel:has-many,join:id=user_id" json:"movies,omitempty"`
}

// Movie references exactly one detail, at most one director and its owner.
type Movie struct {
	bun.BaseModel `bun:"table:movies,alias:m" json:"-"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	ReleaseDate time.Time `bun:"release_date,notnull" json:"releaseDate"`
	DetailID    int64     `bun:"detail_id,notnull" json:"detailId"`
	DirectorID  *int64    `bun:"director_id" json:"directorId"`
	UserID      int64     `bun:"user_id,notnull" json:"userId"`

	Detail     *MovieDetail        `bun:"rel:belongs-to,join:detail_id=id" json:"detail,omitempty"`
	Director   *Director           `bun:"rel:belongs-to,join:director_id=id" json:"director,omitempty"`
	User       *User               `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Categories []*CategoryAndMovie `bun:"rel:has-many,join:id=movie_id" json:"categories,omitempty"`
}

// CategoryNames returns the names of the loaded categories in load order.
func (m *Movie) CategoryNames() []string {
	names := make([]string, 0, len(m.Categories))
	for _, link := range m.Categories {
		if link.Category != nil {
			names = append(names, link.Category.Name)
		}
	}
	return names
}

// MovieDetail belongs to exactly one movie.
type MovieDetail struct {
	bun.BaseModel `bun:"table:movie_details,alias:md" json:"-"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	Duration    int    `bun:"duration,notnull" json:"duration"`
	Description string `bun:"description,notnull" json:"description"`
}

// Director is referenced by zero or more movies.
type Director struct {
	bun.BaseModel `bun:"table:directors,alias:d" json:"-"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

// Category has a unique name.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c" json:"-"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull,unique" json:"name"`
}

// CategoryAndMovie is the many-to-many edge between a movie and a category.
type CategoryAndMovie struct {
	bun.BaseModel `bun:"table:category_and_movies,alias:cm" json:"-"`

	MovieID    int64 `bun:"movie_id,pk" json:"movieId"`
	CategoryID int64 `bun:"category_id,pk" json:"categoryId"`

	Movie    *Movie    `bun:"rel:belongs-to,join:movie_id=id" json:"movie,omitempty"`
	Category *Category `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
}

// DirectorCount holds the aggregated relation counts of a director.
type DirectorCount struct {
	Movies int `json:"movies"`
}

// DirectorWithCount is a director together with the number of movies referencing it.
type DirectorWithCount struct {
	Director
	Count DirectorCount `json:"_count"`
}

// TableCounts holds the number of rows in each cinema table.
type TableCounts struct {
	CategoryAndMovies int64 `json:"categoryAndMovies"`
	Movies            int64 `json:"movies"`
	MovieDetails      int64 `json:"movieDetails"`
	Directors         int64 `json:"directors"`
	Categories        int64 `json:"categories"`
	Users             int64 `json:"users"`
}

// Total returns the sum of all table counts.
func (c TableCounts) Total() int64 {
	return c.CategoryAndMovies + c.Movies + c.MovieDetails + c.Directors + c.Categories + c.Users
}
