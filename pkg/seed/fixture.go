package seed

import (
	"time"

	"github.com/marshallshelly/cinema-seed/pkg/models"
)

// Names the run refers back to after seeding.
const (
	SciFiCategory    = "Ficção Científica"
	ActionCategory   = "Ação"
	ComedyCategory   = "Comédia"
	OriginalDirector = "Lucas Arthuro"
	NewDirectorName  = "Spielbergson"
	NewMovieTitle    = "Amor em Alto Mar"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Fixture returns the user graph seeded at the start of every run.
func Fixture() models.NewUser {
	return models.NewUser{
		Name:  "Cinéfilo João",
		Email: "joao@cinema.com",
		Movies: []models.NewMovie{
			{
				Title:       "O Retorno do Jedi Espacial",
				ReleaseDate: date(2023, time.May, 15),
				Detail: models.NewMovieDetail{
					Duration:    150,
					Description: "Uma épica aventura espacial",
				},
				Director: &models.NewDirector{Name: OriginalDirector},
				Categories: []models.CategoryRef{
					{Name: SciFiCategory, Mode: models.CategoryCreate},
					{Name: "Aventura", Mode: models.CategoryCreate},
				},
			},
			{
				Title:       "O Segredo do Vale",
				ReleaseDate: date(2024, time.January, 20),
				Detail: models.NewMovieDetail{
					Duration:    135,
					Description: "Drama emocionante em ambiente rural",
				},
				Categories: []models.CategoryRef{
					{Name: "Drama", Mode: models.CategoryConnectOrCreate},
				},
			},
		},
	}
}

// TransactionDetail is the detail created inside the transactional step.
func TransactionDetail() models.NewMovieDetail {
	return models.NewMovieDetail{Duration: 125, Description: "Nova comédia romântica"}
}
