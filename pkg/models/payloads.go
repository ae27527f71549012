package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/marshallshelly/cinema-seed/pkg/runtime"
)

// CategoryMode selects how a category reference is resolved when a movie is created.
type CategoryMode int

const (
	// CategoryCreate always inserts the category; an existing name is a duplicate key error.
	CategoryCreate CategoryMode = iota
	// CategoryConnectOrCreate reuses the category with the same name or inserts it.
	CategoryConnectOrCreate
)

// String returns the mode name.
func (m CategoryMode) String() string {
	switch m {
	case CategoryCreate:
		return "create"
	case CategoryConnectOrCreate:
		return "connectOrCreate"
	default:
		return fmt.Sprintf("CategoryMode(%d)", int(m))
	}
}

// CategoryRef names a category to attach to a new movie.
type CategoryRef struct {
	Name string
	Mode CategoryMode
}

// NewMovieDetail is the payload for a movie detail row.
type NewMovieDetail struct {
	Duration    int
	Description string
}

// NewDirector is the payload for a director created together with a movie.
type NewDirector struct {
	Name string
}

// NewMovie describes a movie and the rows it depends on. Stores insert the
// detail, director and categories first and thread their ids into the movie.
type NewMovie struct {
	Title       string
	ReleaseDate time.Time
	Detail      NewMovieDetail
	Director    *NewDirector
	Categories  []CategoryRef
}

// NewUser describes a user together with the movies it owns.
type NewUser struct {
	Name   string
	Email  string
	Movies []NewMovie
}

// MovieInput creates a movie from rows that already exist.
type MovieInput struct {
	Title       string
	ReleaseDate time.Time
	DetailID    int64
	UserID      int64
	DirectorID  *int64
	CategoryIDs []int64
}

// Validate checks the detail payload.
func (d NewMovieDetail) Validate() error {
	if d.Duration <= 0 {
		return &runtime.ValidationError{Field: "duration", Message: "must be positive"}
	}
	if strings.TrimSpace(d.Description) == "" {
		return &runtime.ValidationError{Field: "description", Message: "must not be empty"}
	}
	return nil
}

// Validate checks the movie payload and everything nested in it.
func (m NewMovie) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return &runtime.ValidationError{Field: "title", Message: "must not be empty"}
	}
	if m.ReleaseDate.IsZero() {
		return &runtime.ValidationError{Field: "releaseDate", Message: "must be set"}
	}
	if err := m.Detail.Validate(); err != nil {
		return err
	}
	if m.Director != nil && strings.TrimSpace(m.Director.Name) == "" {
		return &runtime.ValidationError{Field: "director.name", Message: "must not be empty"}
	}
	for i, ref := range m.Categories {
		if strings.TrimSpace(ref.Name) == "" {
			return &runtime.ValidationError{Field: fmt.Sprintf("categories[%d].name", i), Message: "must not be empty"}
		}
	}
	return nil
}

// Validate checks the user payload and every nested movie.
func (u NewUser) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return &runtime.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if at := strings.Index(u.Email, "@"); at <= 0 || at == len(u.Email)-1 {
		return &runtime.ValidationError{Field: "email", Message: "must look like local@domain"}
	}
	for i, m := range u.Movies {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("movies[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks the flat movie payload.
func (in MovieInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &runtime.ValidationError{Field: "title", Message: "must not be empty"}
	}
	if in.ReleaseDate.IsZero() {
		return &runtime.ValidationError{Field: "releaseDate", Message: "must be set"}
	}
	if in.DetailID == 0 {
		return &runtime.ValidationError{Field: "detailId", Message: "must reference a detail"}
	}
	if in.UserID == 0 {
		return &runtime.ValidationError{Field: "userId", Message: "must reference a user"}
	}
	return nil
}
