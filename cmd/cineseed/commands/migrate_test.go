package commands

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/cinema-seed/pkg/migration"
)

func TestMigrateSteps_KeepOwnDefaults(t *testing.T) {
	resetFlags(t, rootCmd)

	tests := []struct {
		cmd  string
		want int
	}{
		{"up", 0},
		{"down", 1},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{"migrate", tt.cmd})
			require.NoError(t, err)

			flag := cmd.Flags().Lookup("steps")
			require.NotNil(t, flag)
			assert.Equal(t, strconv.Itoa(tt.want), flag.DefValue)

			got, err := cmd.Flags().GetInt("steps")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Zero(t, upSteps, "plain migrate up applies every pending migration")
}

func TestPendingMigrations(t *testing.T) {
	migs := []migration.Migration{
		{Version: "20240101000000", Name: "create_cinema_tables"},
		{Version: "20240201000000", Name: "add_movie_rating"},
		{Version: "20240301000000", Name: "add_director_country"},
	}
	status := func(states ...migration.MigrationStatus) []migration.MigrationRecord {
		records := make([]migration.MigrationRecord, len(states))
		for i, st := range states {
			records[i] = migration.MigrationRecord{Version: migs[i].Version, Name: migs[i].Name, Status: st}
		}
		return records
	}
	versions := func(ms []migration.Migration) []string {
		out := make([]string, 0, len(ms))
		for _, m := range ms {
			out = append(out, m.Version)
		}
		return out
	}

	tests := map[string]struct {
		status []migration.MigrationRecord
		limit  int
		want   []string
	}{
		"all pending, no limit": {
			status: status(migration.StatusPending, migration.StatusPending, migration.StatusPending),
			want:   []string{"20240101000000", "20240201000000", "20240301000000"},
		},
		"skips applied": {
			status: status(migration.StatusApplied, migration.StatusPending, migration.StatusPending),
			want:   []string{"20240201000000", "20240301000000"},
		},
		"failed is retried": {
			status: status(migration.StatusApplied, migration.StatusFailed, migration.StatusPending),
			want:   []string{"20240201000000", "20240301000000"},
		},
		"limit": {
			status: status(migration.StatusPending, migration.StatusPending, migration.StatusPending),
			limit:  1,
			want:   []string{"20240101000000"},
		},
		"nothing pending": {
			status: status(migration.StatusApplied, migration.StatusApplied, migration.StatusApplied),
			want:   []string{},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, versions(pendingMigrations(migs, tt.status, tt.limit)))
		})
	}
}
