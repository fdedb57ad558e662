package overrides

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/canvai/canvai/internal/common"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE model_overrides (
  user_id TEXT PRIMARY KEY,
  model TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func TestSet_InsertAndUpdate(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, r.Set(ctx, userID, "gpt-4"))

	got, err := r.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", got)

	require.NoError(t, r.Set(ctx, userID, "gpt-4o"))

	got, err = r.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got)
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
