package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDatabase_MigratesAndWires(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "test.db")

	repos, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.DB.Close() })

	// every store is usable against the migrated schema
	userID := uuid.New()
	require.NoError(t, repos.Credentials.Set(ctx, userID, "ct"))
	require.NoError(t, repos.Overrides.Set(ctx, userID, "gpt-4"))
	require.NoError(t, repos.Seen.Upsert(ctx, 1, 1000))

	got, err := repos.Credentials.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "ct", got)
}

func TestInitDatabase_Idempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "test.db")

	repos1, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, repos1.DB.Close())

	// reopening an already-migrated database must not fail
	repos2, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, repos2.DB.Close())
}
