package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "DB_DRIVER", "DATABASE_URL", "SQLITE_PATH", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "cinema.db", cfg.DB.SQLitePath)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "cinema", cfg.DB.Name)
	assert.Equal(t, "postgres", cfg.DB.User)
	assert.Equal(t, "prefer", cfg.DB.SSLMode)
	assert.EqualValues(t, 4, cfg.DB.MaxConns)
	assert.EqualValues(t, 1, cfg.DB.MinConns)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_MAX_CONNS", "10")
	t.Setenv("DB_MIN_CONNS", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.EqualValues(t, 10, cfg.DB.MaxConns)
	assert.EqualValues(t, 1, cfg.DB.MinConns)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_URL=postgres://from-file/cinema\n"), 0o600))

	// godotenv never overrides variables that are already set.
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-file/cinema", cfg.DB.URL)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Log.Level = "info"
		cfg.Log.Format = "json"
		cfg.DB.Driver = DriverPostgres
		cfg.DB.URL = "postgres://localhost/cinema"
		cfg.DB.MaxConns = 4
		cfg.DB.MinConns = 1
		return cfg
	}

	assert.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"unknown driver": func(c *Config) { c.DB.Driver = "mysql" },
		"unknown level":  func(c *Config) { c.Log.Level = "verbse" },
		"unknown format": func(c *Config) { c.Log.Format = "xml" },
		"empty level":    func(c *Config) { c.Log.Level = "" },
		"missing url":    func(c *Config) { c.DB.URL = "" },
		"bad port":       func(c *Config) { c.DB.URL, c.DB.Host, c.DB.Port = "", "db", 70000 },
		"zero max conns": func(c *Config) { c.DB.MaxConns = 0 },
		"min above max":  func(c *Config) { c.DB.MinConns = 5 },
		"negative min":   func(c *Config) { c.DB.MinConns = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	discrete := valid()
	discrete.DB.URL = ""
	discrete.DB.Host = "db.internal"
	discrete.DB.Port = 5432
	assert.NoError(t, discrete.Validate())

	upper := valid()
	upper.Log.Level, upper.Log.Format = "WARN", "Console"
	assert.NoError(t, upper.Validate())

	sqlite := valid()
	sqlite.DB.Driver = DriverSQLite
	sqlite.DB.URL = ""
	assert.NoError(t, sqlite.Validate())
}
