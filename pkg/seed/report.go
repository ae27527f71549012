package seed

import (
	"time"

	"github.com/marshallshelly/cinema-seed/pkg/models"
)

// Step names, in run order.
const (
	StepReset            = "reset"
	StepSeed             = "seed"
	StepQueryUser        = "query.user"
	StepQueryCategory    = "query.category"
	StepQueryDirectors   = "query.directors"
	StepAddCategory      = "mutate.add-category"
	StepReassignDirector = "mutate.reassign-director"
	StepTransaction      = "mutate.transaction"
	StepRemoveCategory   = "delete.category-link"
	StepDeleteDirector   = "delete.director"
	StepFinal            = "final"
)

// StepInfo describes one step of a run.
type StepInfo struct {
	Name  string
	Title string
}

// Steps lists every step of Run in order.
func Steps() []StepInfo {
	return []StepInfo{
		{StepReset, "Existing data cleared"},
		{StepSeed, "User created with related movies"},
		{StepQueryUser, "User with every relation"},
		{StepQueryCategory, "Movies in " + SciFiCategory},
		{StepQueryDirectors, "Directors with movie count"},
		{StepAddCategory, "Movie with new category"},
		{StepReassignDirector, "Movie with new director"},
		{StepTransaction, "Movie created after transaction"},
		{StepRemoveCategory, "Category removed from movie"},
		{StepDeleteDirector, "Movie after director deletion"},
		{StepFinal, "Final user state"},
	}
}

func title(step string) string {
	for _, s := range Steps() {
		if s.Name == step {
			return s.Title
		}
	}
	return step
}

// Report collects the result of every step.
type Report struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	User                 *models.User               `json:"user"`
	UserWithMovies       *models.User               `json:"userWithMovies"`
	SciFiLinks           []*models.CategoryAndMovie `json:"sciFiMovies"`
	DirectorsWithCount   []models.DirectorWithCount `json:"directorsWithCount"`
	MovieWithNewCategory *models.Movie              `json:"movieWithNewCategory"`
	MovieWithNewDirector *models.Movie              `json:"movieWithNewDirector"`
	TransactionDetail    *models.MovieDetail        `json:"transactionDetail"`
	TransactionCategory  *models.Category           `json:"transactionCategory"`
	NewMovie             *models.Movie              `json:"newMovie"`
	RemovedCategoryLinks int64                      `json:"removedCategoryLinks"`
	DirectorDeleted      bool                       `json:"directorDeleted"`
	AffectedMovie        *AffectedMovie             `json:"affectedMovie,omitempty"`
	FinalUser            *models.User               `json:"finalUser"`
}

// AffectedMovie is the director projection of a movie re-read after a director delete.
type AffectedMovie struct {
	Director *models.Director `json:"director"`
}

// firstMovieID returns the id of the first seeded movie.
func (r *Report) firstMovieID() (int64, bool) {
	if r.User == nil || len(r.User.Movies) == 0 {
		return 0, false
	}
	return r.User.Movies[0].ID, true
}

// Reporter receives each step result as soon as it is available.
type Reporter interface {
	Step(name, title string, value any)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(name, title string, value any)

// Step implements Reporter.
func (f ReporterFunc) Step(name, title string, value any) {
	f(name, title, value)
}

type nopReporter struct{}

func (nopReporter) Step(string, string, any) {}
