package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/cinema-seed/cmd/cineseed/output"
	"github.com/marshallshelly/cinema-seed/cmd/cineseed/tui"
	"github.com/marshallshelly/cinema-seed/pkg/store"
)

var (
	// Reset flags
	assumeYes bool

	// confirm is swapped out in tests.
	confirm = tui.Confirm
)

// resetCmd clears the cinema tables
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every row from the cinema tables",
	Long: `Delete every row from the six cinema tables, children first. The schema is kept.

Examples:
  cineseed reset           # Ask before deleting
  cineseed reset --yes     # Delete without asking`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReset(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runReset(ctx context.Context) error {
	if !assumeYes {
		ok, err := confirm("Reset Cinema Data", "Delete every user, movie, detail, director and category?")
		if err != nil {
			return err
		}
		if !ok {
			output.Warning("Reset cancelled")
			return nil
		}
	}

	return withStore(ctx, func(s store.Store) error {
		if err := newRunner(s, nil).Reset(ctx); err != nil {
			return err
		}
		if jsonOutput {
			counts, err := s.Counts(ctx)
			if err != nil {
				return err
			}
			return output.JSON(counts)
		}
		output.Success("Cinema tables cleared")
		return nil
	})
}
