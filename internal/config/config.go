// Package config loads the cineseed settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/marshallshelly/cinema-seed/internal/logx"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	AppEnv string
	Log    struct {
		Level  string // debug, info, warn, error
		Format string // console, json
	}
	DB struct {
		Driver     string // postgres, sqlite
		URL        string // wins over the discrete settings below
		Host       string
		Port       int
		Name       string
		User       string
		Password   string
		SSLMode    string
		SQLitePath string
		MaxConns   int32
		MinConns   int32
	}
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the environment alone.
func FromEnv() *Config {
	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Log.Level = getEnv("LOG_LEVEL", lo.Ternary(cfg.AppEnv == "production", "info", "debug"))
	cfg.Log.Format = getEnv("LOG_FORMAT", lo.Ternary(logx.IsLocalDev(cfg.AppEnv), "console", "json"))

	cfg.DB.Driver = getEnv("DB_DRIVER", DriverPostgres)
	cfg.DB.URL = getEnv("DATABASE_URL", "")
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getInt("DB_PORT", 5432)
	cfg.DB.Name = getEnv("DB_NAME", "cinema")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "prefer")
	cfg.DB.SQLitePath = getEnv("SQLITE_PATH", "cinema.db")
	cfg.DB.MaxConns = int32(getInt("DB_MAX_CONNS", 4))
	cfg.DB.MinConns = int32(getInt("DB_MIN_CONNS", 1))

	return cfg
}

// Validate reports settings that cannot be used to open a store.
func (c *Config) Validate() error {
	if !lo.Contains([]string{DriverPostgres, DriverSQLite}, c.DB.Driver) {
		return fmt.Errorf("unknown driver %q (want %s or %s)", c.DB.Driver, DriverPostgres, DriverSQLite)
	}
	if !lo.Contains(logx.Levels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("unknown log level %q (want one of %s)", c.Log.Level, strings.Join(logx.Levels, ", "))
	}
	if !lo.Contains(logx.Formats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("unknown log format %q (want one of %s)", c.Log.Format, strings.Join(logx.Formats, ", "))
	}
	if c.DB.Driver == DriverPostgres && c.DB.URL == "" {
		if c.DB.Host == "" {
			return errors.New("DATABASE_URL (or --db) or DB_HOST is required for the postgres driver")
		}
		if c.DB.Port < 1 || c.DB.Port > 65535 {
			return fmt.Errorf("DB_PORT must be a TCP port, got %d", c.DB.Port)
		}
	}
	if c.DB.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1, got %d", c.DB.MaxConns)
	}
	if c.DB.MinConns < 0 || c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, got %d", c.DB.MinConns)
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	return lo.Ternary(v != "", v, def)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
