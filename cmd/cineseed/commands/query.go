package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marshallshelly/cinema-seed/cmd/cineseed/output"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
	"github.com/marshallshelly/cinema-seed/pkg/store"
)

// queryCmd groups the read-only lookups
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one of the demo reads against the current data",
	Long: `Run the demo reads on their own, without resetting or seeding.

Subcommands:
  user <id>         - A user with movies, details, directors and categories
  category <name>   - The movies linked to a category, with detail and owner
  directors         - Every director with its movie count`,
}

var queryUserCmd = &cobra.Command{
	Use:   "user <id>",
	Short: "Show a user with every relation",
	Long: `Show a user with movies, details, directors and categories. An unknown id is
an empty result, printed as "(none)" or JSON null.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", args[0], err)
		}
		return runQuery(cmd.Context(), "User", func(ctx context.Context, s store.Store) (any, error) {
			user, err := s.FindUser(ctx, id)
			if runtime.IsNotFound(err) {
				logger.Debug("user not found", zap.Int64("user_id", id))
				return nil, nil
			}
			return user, err
		})
	},
}

var queryCategoryCmd = &cobra.Command{
	Use:     "category <name>",
	Short:   "Show the movies linked to a category",
	Example: `  cineseed query category "Ficção Científica"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), "Movies in "+args[0], func(ctx context.Context, s store.Store) (any, error) {
			return s.FindCategoryLinks(ctx, args[0])
		})
	},
}

var queryDirectorsCmd = &cobra.Command{
	Use:   "directors",
	Short: "Show every director with its movie count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runQuery(cmd.Context(), "Directors", func(ctx context.Context, s store.Store) (any, error) {
			return s.ListDirectorsWithCount(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryUserCmd, queryCategoryCmd, queryDirectorsCmd)
}

func runQuery(ctx context.Context, title string, fn func(ctx context.Context, s store.Store) (any, error)) error {
	return withStore(ctx, func(s store.Store) error {
		value, err := fn(ctx, s)
		if err != nil {
			return err
		}
		if jsonOutput {
			return output.JSON(value)
		}
		return output.Dump(title, value)
	})
}
