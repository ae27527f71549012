package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marshallshelly/cinema-seed/cmd/cineseed/output"
	"github.com/marshallshelly/cinema-seed/cmd/cineseed/tui"
	"github.com/marshallshelly/cinema-seed/pkg/seed"
	"github.com/marshallshelly/cinema-seed/pkg/store"
)

var (
	// Run flags
	interactive  bool
	migrateFirst bool
)

// runCmd runs the whole demo
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full cinema demo",
	Long: `Reset the cinema tables, seed the demo user and walk through every query,
mutation and deletion, printing each result as it is produced.

Examples:
  cineseed run --db postgres://localhost/cinema
  cineseed run --driver sqlite --sqlite-path :memory:
  cineseed run -i                      # Show progress in a TUI
  cineseed run --json                  # Print the whole report as JSON`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDemo(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	runCmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply pending schema migrations before running")
}

// consoleReporter prints every step as a section with its value as JSON.
type consoleReporter struct{}

func (consoleReporter) Step(_, title string, value any) {
	if err := output.Dump(title, value); err != nil {
		logger.Warn("failed to print step result", zap.String("step", title), zap.Error(err))
	}
	output.Muted("")
}

func newRunner(s store.Store, reporter seed.Reporter) *seed.Runner {
	opts := []seed.Option{seed.WithLogger(logger)}
	if reporter != nil {
		opts = append(opts, seed.WithReporter(reporter))
	}
	return seed.NewRunner(s, opts...)
}

func runDemo(ctx context.Context) error {
	return withStore(ctx, func(s store.Store) error {
		if migrateFirst {
			if err := migrateStore(ctx, s); err != nil {
				return err
			}
		}

		var (
			rep *seed.Report
			err error
		)
		switch {
		case interactive:
			rep, err = tui.RunSeedUI(ctx, func(ctx context.Context, r seed.Reporter) (*seed.Report, error) {
				return newRunner(s, r).Run(ctx)
			})
		case jsonOutput:
			rep, err = newRunner(s, nil).Run(ctx)
		default:
			output.Section("Cinema Seed")
			rep, err = newRunner(s, consoleReporter{}).Run(ctx)
		}
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}

		if jsonOutput {
			return output.JSON(rep)
		}
		output.Success("Run %s finished in %s", rep.RunID, rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
		return nil
	})
}
