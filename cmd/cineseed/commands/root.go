// Package commands holds the cineseed cobra command tree.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marshallshelly/cinema-seed/cmd/cineseed/output"
	"github.com/marshallshelly/cinema-seed/internal/config"
	"github.com/marshallshelly/cinema-seed/internal/logx"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
	"github.com/marshallshelly/cinema-seed/pkg/store"
	"github.com/marshallshelly/cinema-seed/pkg/store/postgres"
	"github.com/marshallshelly/cinema-seed/pkg/store/sqlite"
)

var (
	// Global flags
	dbURL      string
	driver     string
	sqlitePath string
	logLevel   string
	logFormat  string
	verbose    bool
	jsonOutput bool

	// Set up by the root pre-run hook.
	cfg    *config.Config
	logger = logx.Nop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cineseed",
	Short: "Cinema seed - demo data runner for the cinema schema",
	Long: `cineseed wipes the cinema tables, seeds a user with a nested movie graph and
walks through the canonical queries, mutations and deletions against it.

Stores:
  - postgres  (pgx, schema from "cineseed migrate up")
  - sqlite    (bun over modernc.org/sqlite, schema applied on open)`,
	Version:           "0.4.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command. Commands release their store before
// returning, so exiting here never leaks a connection.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		output.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Store driver: postgres or sqlite (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database file, or :memory: (overrides SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json (overrides LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		loaded.DB.URL = dbURL
	}
	if flags.Changed("driver") {
		loaded.DB.Driver = driver
	}
	if flags.Changed("sqlite-path") {
		loaded.DB.SQLitePath = sqlitePath
	}
	if flags.Changed("log-level") {
		loaded.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		loaded.Log.Format = logFormat
	}
	if verbose {
		loaded.Log.Level = "debug"
	}

	if err := loaded.Validate(); err != nil {
		return err
	}

	l, err := logx.New(loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	cfg = loaded
	logger = l.With(zap.String("driver", cfg.DB.Driver))
	return nil
}

// openStore connects the configured store. Callers must Close it.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.DB.Driver {
	case config.DriverSQLite:
		logger.Debug("opening sqlite store", zap.String("path", cfg.DB.SQLitePath))
		s, err := sqlite.Open(ctx, cfg.DB.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := openPostgres(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return s, nil
	}
}

func openPostgres(ctx context.Context) (*postgres.Store, error) {
	rc := &runtime.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		Database: cfg.DB.Name,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		SSLMode:  cfg.DB.SSLMode,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}
	if cfg.DB.URL != "" {
		logger.Debug("opening postgres store from url", zap.Int32("max_conns", rc.MaxConns))
		return postgres.Open(ctx, cfg.DB.URL, rc)
	}
	logger.Debug("opening postgres store", zap.String("host", rc.Host), zap.Int("port", rc.Port), zap.String("database", rc.Database))
	return postgres.OpenConfig(ctx, rc)
}

// withStore opens the store, runs fn and closes the store on every path.
func withStore(ctx context.Context, fn func(s store.Store) error) (err error) {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close store: %w", cerr)
		}
		logger.Debug("store closed")
	}()

	return fn(s)
}
