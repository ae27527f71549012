package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/cinema-seed/cmd/cineseed/output"
	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/store"
)

// statusCmd shows row counts
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the number of rows in each cinema table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStatus(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(ctx context.Context) error {
	return withStore(ctx, func(s store.Store) error {
		counts, err := s.Counts(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return output.JSON(counts)
		}
		return printCounts(counts)
	})
}

func printCounts(counts models.TableCounts) error {
	output.Section("Cinema Tables")

	w := tabwriter.NewWriter(output.Writer(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TABLE\tROWS")
	_, _ = fmt.Fprintln(w, "-----\t----")
	for _, row := range []struct {
		table string
		rows  int64
	}{
		{"users", counts.Users},
		{"movie_details", counts.MovieDetails},
		{"directors", counts.Directors},
		{"categories", counts.Categories},
		{"movies", counts.Movies},
		{"category_and_movies", counts.CategoryAndMovies},
	} {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", row.table, row.rows)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	output.Muted("\nTotal: %d", counts.Total())
	return nil
}
