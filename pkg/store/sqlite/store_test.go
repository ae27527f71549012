package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/cinema-seed/pkg/models"
	"github.com/marshallshelly/cinema-seed/pkg/store"
	"github.com/marshallshelly/cinema-seed/pkg/store/sqlite"
	"github.com/marshallshelly/cinema-seed/pkg/store/storetest"
)

func openMemory(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openMemory)
}

func TestOpen_MemoryDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := openMemory(t)
	b := openMemory(t)

	_, err := a.CreateDirector(ctx, "Somente A")
	require.NoError(t, err)

	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Directors)
}

func TestOpen_FileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cinema.db")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	_, err = s.UpsertCategory(ctx, "Drama")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close must be idempotent")

	reopened, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	// Migrate runs again on open and must keep existing rows.
	counts, err := reopened.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TableCounts{Categories: 1}, counts)
}
