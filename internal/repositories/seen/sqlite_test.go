package seen

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE canvas_seen (
  canvas_id INTEGER PRIMARY KEY,
  last_seen INTEGER NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func TestUpsertAndAll(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, 1, 1000))
	require.NoError(t, r.Upsert(ctx, 2, 2000))
	require.NoError(t, r.Upsert(ctx, 1, 1500)) // newer sighting wins

	all, err := r.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int32]int64{1: 1500, 2: 2000}, all)
}

func TestDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, 7, 1000))
	require.NoError(t, r.Delete(ctx, 7))

	all, err := r.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// deleting a missing id is not an error
	require.NoError(t, r.Delete(ctx, 7))
}
