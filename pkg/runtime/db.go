package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents a database connection.
type DB struct {
	pool      *pgxpool.Pool
	config    *Config
	closeOnce sync.Once
}

// Config represents database configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// Connect creates a new DB instance by connecting to PostgreSQL.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(buildConnectionString(config))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return connect(ctx, poolConfig, config)
}

// ConnectWithURL creates a new DB instance using a connection URL.
// Non-zero pool limits in config override the ones in the URL.
func ConnectWithURL(ctx context.Context, url string, config *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection URL: %w", err)
	}
	if config == nil {
		config = &Config{}
	}

	return connect(ctx, poolConfig, config)
}

func connect(ctx context.Context, poolConfig *pgxpool.Config, config *Config) (*DB, error) {
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		pool:   pool,
		config: config,
	}, nil
}

// Pool returns the underlying pgxpool.Pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the database connection pool. Calling it more than once is a no-op.
func (db *DB) Close() {
	db.closeOnce.Do(func() {
		if db.pool != nil {
			db.pool.Close()
		}
	})
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.pool == nil {
		return ErrNoConnection
	}
	return db.pool.Ping(ctx)
}

// buildConnectionString renders config as a keyword/value DSN. Values are
// single-quoted and empty ones are left out, so the server defaults apply.
func buildConnectionString(config *Config) string {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	port := config.Port
	if port == 0 {
		port = 5432
	}

	pairs := []struct{ key, value string }{
		{"host", config.Host},
		{"port", strconv.Itoa(port)},
		{"user", config.User},
		{"password", config.Password},
		{"dbname", config.Database},
		{"sslmode", sslMode},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quoteValue(p.value))
	}
	return strings.Join(parts, " ")
}

var valueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteValue(v string) string {
	return "'" + valueEscaper.Replace(v) + "'"
}

// DefaultConfig returns a default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		Database: "cinema",
		User:     "postgres",
		Password: "",
		SSLMode:  "prefer",
		MaxConns: 4,
		MinConns: 1,
	}
}
