package runtime

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   string
	}{
		{
			name:   "defaults",
			config: DefaultConfig(),
			want:   "host='localhost' port='5432' user='postgres' dbname='cinema' sslmode='prefer'",
		},
		{
			name:   "zero port and ssl mode",
			config: &Config{Host: "db", User: "app", Database: "cinema"},
			want:   "host='db' port='5432' user='app' dbname='cinema' sslmode='prefer'",
		},
		{
			name:   "quoted password",
			config: &Config{Host: "db", Port: 6543, User: "app", Password: `it's a \secret`, Database: "cinema", SSLMode: "disable"},
			want:   `host='db' port='6543' user='app' password='it\'s a \\secret' dbname='cinema' sslmode='disable'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildConnectionString(tt.config))
		})
	}
}

func TestBuildConnectionString_RoundTrips(t *testing.T) {
	config := &Config{Host: "db", Port: 6543, User: "app", Password: `it's a \secret`, Database: "cinema", SSLMode: "disable"}

	parsed, err := pgxpool.ParseConfig(buildConnectionString(config))
	require.NoError(t, err)
	assert.Equal(t, "db", parsed.ConnConfig.Host)
	assert.EqualValues(t, 6543, parsed.ConnConfig.Port)
	assert.Equal(t, "app", parsed.ConnConfig.User)
	assert.Equal(t, `it's a \secret`, parsed.ConnConfig.Password)
	assert.Equal(t, "cinema", parsed.ConnConfig.Database)
}

func TestDB_WithoutPool(t *testing.T) {
	db := &DB{}

	assert.ErrorIs(t, db.Ping(context.Background()), ErrNoConnection)
	assert.Nil(t, db.Pool())
	db.Close()
	db.Close()
}
