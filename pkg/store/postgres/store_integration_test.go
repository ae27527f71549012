//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/cinema-seed/internal/pgtest"
	"github.com/marshallshelly/cinema-seed/migrations"
	"github.com/marshallshelly/cinema-seed/pkg/migration"
	"github.com/marshallshelly/cinema-seed/pkg/runtime"
	"github.com/marshallshelly/cinema-seed/pkg/store"
	"github.com/marshallshelly/cinema-seed/pkg/store/postgres"
	"github.com/marshallshelly/cinema-seed/pkg/store/storetest"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	connStr := pgtest.Start(t)

	s, err := postgres.Open(ctx, connStr, runtime.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	migs, err := migration.Load(migrations.FS, migrations.Postgres)
	require.NoError(t, err)

	executor := migration.NewExecutor(s.DB().Pool())
	require.NoError(t, executor.Initialize(ctx))
	_, err = executor.ApplyAll(ctx, migs, false)
	require.NoError(t, err)

	// Subtests share one container, so every store starts from an empty database.
	storetest.Run(t, func(t *testing.T) store.Store {
		require.NoError(t, s.Reset(ctx))
		return s
	})
}
