package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marshallshelly/cinema-seed/cmd/cineseed/output"
	"github.com/marshallshelly/cinema-seed/cmd/cineseed/tui"
	"github.com/marshallshelly/cinema-seed/migrations"
	"github.com/marshallshelly/cinema-seed/pkg/migration"
	"github.com/marshallshelly/cinema-seed/pkg/store"
	"github.com/marshallshelly/cinema-seed/pkg/store/postgres"
	"github.com/marshallshelly/cinema-seed/pkg/store/sqlite"
)

var (
	// Migrate flags
	dryRun    bool
	upSteps   int
	downSteps int
)

// errSQLiteDown is returned by "migrate down" on the sqlite driver.
var errSQLiteDown = errors.New("the sqlite schema is applied on open and cannot be rolled back; delete the database file instead")

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the cinema schema",
	Long: `Apply, roll back and inspect the embedded cinema schema migrations.

Subcommands:
  up      - Apply pending migrations
  down    - Roll back applied migrations
  status  - Show migration status`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations. PostgreSQL migrations are tracked in schema_migrations
and run under an advisory lock; the sqlite schema is idempotent and simply re-applied.

Examples:
  cineseed migrate up                  # Apply all pending migrations
  cineseed migrate up --steps 1        # Apply the next migration
  cineseed migrate up --dry-run        # Preview without applying
  cineseed migrate up -i               # Pick a migration in a TUI`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrateUp(cmd.Context())
	},
}

// migrateDownCmd rolls back migrations
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Long: `Roll back the most recently applied migrations (PostgreSQL only).

Examples:
  cineseed migrate down                # Roll back the last migration
  cineseed migrate down --steps 2      # Roll back the last two
  cineseed migrate down --dry-run      # Preview without executing`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrateDown(cmd.Context())
	},
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Show the status of every embedded migration (pending, applied, failed).

Examples:
  cineseed migrate status
  cineseed migrate status --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrateStatus(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	migrateUpCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview migrations without applying")
	migrateUpCmd.Flags().IntVar(&upSteps, "steps", 0, "Number of migrations to apply (0 applies all)")

	migrateDownCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateDownCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview rollback without executing")
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "Number of migrations to roll back")
}

func loadMigrations() ([]migration.Migration, error) {
	migs, err := migration.Load(migrations.FS, migrations.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return migs, nil
}

// withExecutor runs fn with an initialized executor on the store's pool. A
// sqlite store is handed to onSQLite instead.
func withExecutor(ctx context.Context, onSQLite func(s *sqlite.Store) error, fn func(e *migration.Executor, migs []migration.Migration) error) error {
	return withStore(ctx, func(s store.Store) error {
		switch st := s.(type) {
		case *sqlite.Store:
			return onSQLite(st)
		case *postgres.Store:
			migs, err := loadMigrations()
			if err != nil {
				return err
			}
			executor := migration.NewExecutor(st.DB().Pool())
			if err := executor.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrations: %w", err)
			}
			return fn(executor, migs)
		default:
			return fmt.Errorf("store %T does not support migrations", s)
		}
	})
}

// migrateStore brings the schema of s up to date.
func migrateStore(ctx context.Context, s store.Store) error {
	switch st := s.(type) {
	case *sqlite.Store:
		return st.Migrate(ctx)
	case *postgres.Store:
		migs, err := loadMigrations()
		if err != nil {
			return err
		}
		executor := migration.NewExecutor(st.DB().Pool())
		if err := executor.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to initialize migrations: %w", err)
		}
		if err := executor.Lock(ctx); err != nil {
			return err
		}
		defer func() { _ = executor.Unlock(ctx) }()

		applied, err := executor.ApplyAll(ctx, migs, false)
		if err != nil {
			return err
		}
		logger.Info("schema migrated", zap.Strings("applied", applied))
		return nil
	default:
		return fmt.Errorf("store %T does not support migrations", s)
	}
}

// pendingMigrations returns the migrations not yet applied, in order, capped
// at limit when limit is positive. status is parallel to migs.
func pendingMigrations(migs []migration.Migration, status []migration.MigrationRecord, limit int) []migration.Migration {
	var pending []migration.Migration
	for i, record := range status {
		if record.Status == migration.StatusApplied {
			continue
		}
		pending = append(pending, migs[i])
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending
}

func runMigrateUp(ctx context.Context) error {
	sqliteUp := func(s *sqlite.Store) error {
		if dryRun {
			output.Info("DRY RUN - the sqlite schema would be re-applied")
			return nil
		}
		if err := s.Migrate(ctx); err != nil {
			return err
		}
		output.Success("SQLite schema is up to date")
		return nil
	}

	return withExecutor(ctx, sqliteUp, func(executor *migration.Executor, migs []migration.Migration) error {
		if interactive {
			return tui.RunMigrateUI(ctx, "up", executor, migs)
		}

		if !dryRun {
			if err := executor.Lock(ctx); err != nil {
				return err
			}
			defer func() { _ = executor.Unlock(ctx) }()
		}

		status, err := executor.GetStatus(ctx, migs)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		toApply := pendingMigrations(migs, status, upSteps)
		if len(toApply) == 0 {
			output.Info("No pending migrations")
			return nil
		}

		if dryRun {
			output.Section("DRY RUN - Preview")
			output.Info("The following migrations would be applied:")
			for _, mig := range toApply {
				output.Muted("  %s %s - %s", output.StatusIcon("pending"), mig.Version, mig.Name)
			}
			return nil
		}

		output.Section("Applying Migrations")
		for _, mig := range toApply {
			output.Info("Applying %s - %s...", mig.Version, mig.Name)
			if err := executor.Apply(ctx, mig, false); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", mig.Version, err)
			}
			output.Success("Applied %s", mig.Version)
		}

		output.Success("Successfully applied %d migration(s)", len(toApply))
		return nil
	})
}

func runMigrateDown(ctx context.Context) error {
	sqliteDown := func(*sqlite.Store) error { return errSQLiteDown }

	return withExecutor(ctx, sqliteDown, func(executor *migration.Executor, migs []migration.Migration) error {
		if interactive {
			return tui.RunMigrateUI(ctx, "down", executor, migs)
		}

		if !dryRun {
			if err := executor.Lock(ctx); err != nil {
				return err
			}
			defer func() { _ = executor.Unlock(ctx) }()
		}

		applied, err := executor.GetAppliedMigrations(ctx)
		if err != nil {
			return fmt.Errorf("failed to get applied migrations: %w", err)
		}
		if len(applied) == 0 {
			output.Info("No migrations to roll back")
			return nil
		}

		toRollback := min(max(downSteps, 1), len(applied))

		if dryRun {
			output.Section("DRY RUN - Preview")
			output.Info("The following migrations would be rolled back:")
			for i := len(applied) - 1; i >= len(applied)-toRollback; i-- {
				output.Muted("  %s %s - %s", output.StatusIcon("applied"), applied[i].Version, applied[i].Name)
			}
			return nil
		}

		output.Section("Rolling Back Migrations")
		for range toRollback {
			version, err := executor.RollbackLast(ctx, migs, false)
			if err != nil {
				return fmt.Errorf("failed to roll back migration: %w", err)
			}
			output.Success("Rolled back %s", version)
		}

		output.Success("Successfully rolled back %d migration(s)", toRollback)
		return nil
	})
}

func runMigrateStatus(ctx context.Context) error {
	sqliteStatus := func(*sqlite.Store) error {
		if jsonOutput {
			return output.JSON(map[string]string{"driver": "sqlite", "status": "applied on open"})
		}
		output.Info("The sqlite schema is applied every time the store is opened")
		return nil
	}

	return withExecutor(ctx, sqliteStatus, func(executor *migration.Executor, migs []migration.Migration) error {
		status, err := executor.GetStatus(ctx, migs)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		if jsonOutput {
			return output.JSON(status)
		}

		w := tabwriter.NewWriter(output.Writer(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
		_, _ = fmt.Fprintln(w, "-------\t----\t------\t----------")

		var applied, pending, failed int
		for _, record := range status {
			appliedAt := "N/A"
			if record.AppliedAt != nil {
				appliedAt = record.AppliedAt.Format("2006-01-02 15:04:05")
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n",
				record.Version, record.Name, output.StatusIcon(string(record.Status)), record.Status, appliedAt)

			switch record.Status {
			case migration.StatusApplied:
				applied++
			case migration.StatusFailed:
				failed++
			default:
				pending++
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		output.Section("Summary")
		output.Info("Total: %d, Applied: %d, Pending: %d, Failed: %d", len(status), applied, pending, failed)
		return nil
	})
}
