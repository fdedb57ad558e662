package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/canvai/canvai/internal/logging"
	"github.com/canvai/canvai/internal/provider"
	"github.com/canvai/canvai/internal/repositories/credentials"
	"github.com/canvai/canvai/internal/repositories/overrides"
	"github.com/canvai/canvai/internal/vault"
)

func setupRegistry(t *testing.T, client provider.Client) (*Registry, *vault.Vault, credentials.Repository, overrides.Repository) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE credentials (
  user_id TEXT PRIMARY KEY,
  ciphertext TEXT NOT NULL
);
`)
	require.NoError(t, err)

	_, err = db.Exec(`
CREATE TABLE model_overrides (
  user_id TEXT PRIMARY KEY,
  model TEXT NOT NULL
);
`)
	require.NoError(t, err)

	v, err := vault.Open(t.TempDir(), "")
	require.NoError(t, err)

	creds := credentials.NewSQLiteRepository(db)
	models := overrides.NewSQLiteRepository(db)

	defaults := Defaults{
		Secret:   "sk-default",
		Model:    "gpt-default",
		Timeout:  time.Minute,
		MaxPairs: 10,
	}

	return NewRegistry(v, creds, models, client, defaults, logging.Nop()), v, creds, models
}

func TestRegistry_SameUserSameAgent(t *testing.T) {
	r, _, _, _ := setupRegistry(t, &fakeClient{})
	ctx := context.Background()
	userID := uuid.New()

	a1, err := r.GetOrCreateAgent(ctx, userID)
	require.NoError(t, err)
	a2, err := r.GetOrCreateAgent(ctx, userID)
	require.NoError(t, err)

	assert.Same(t, a1, a2)

	other, err := r.GetOrCreateAgent(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotSame(t, a1, other)
}

func TestRegistry_DefaultsApplyWithoutOverrides(t *testing.T) {
	r, _, _, _ := setupRegistry(t, &fakeClient{})

	a, err := r.GetOrCreateAgent(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, "sk-default", a.Secret())
	assert.Equal(t, "gpt-default", a.Model())
}

func TestRegistry_PersistedOverridesApply(t *testing.T) {
	r, v, creds, models := setupRegistry(t, &fakeClient{})
	ctx := context.Background()
	userID := uuid.New()

	ciphertext, err := v.Encrypt("sk-user")
	require.NoError(t, err)
	require.NoError(t, creds.Set(ctx, userID, ciphertext))
	require.NoError(t, models.Set(ctx, userID, "gpt-user"))

	a, err := r.GetOrCreateAgent(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, "sk-user", a.Secret())
	assert.Equal(t, "gpt-user", a.Model())
}

func TestRegistry_SharedCredentialFallback(t *testing.T) {
	r, v, creds, _ := setupRegistry(t, &fakeClient{})
	ctx := context.Background()

	ciphertext, err := v.Encrypt("sk-shared")
	require.NoError(t, err)
	require.NoError(t, creds.Set(ctx, DefaultCredentialID, ciphertext))

	a, err := r.GetOrCreateAgent(ctx, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, "sk-shared", a.Secret())
}

func TestRegistry_CorruptCredentialFallsBackToDefault(t *testing.T) {
	r, _, creds, _ := setupRegistry(t, &fakeClient{})
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, creds.Set(ctx, userID, "not-a-ciphertext"))

	a, err := r.GetOrCreateAgent(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, "sk-default", a.Secret())
}

func TestRegistry_SetModelPersistsAndUpdatesLiveAgent(t *testing.T) {
	r, _, _, models := setupRegistry(t, &fakeClient{})
	ctx := context.Background()
	userID := uuid.New()

	a, err := r.GetOrCreateAgent(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, r.SetModel(ctx, userID, "gpt-chosen"))

	assert.Equal(t, "gpt-chosen", a.Model())

	stored, err := models.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "gpt-chosen", stored)
}

func TestRegistry_SetCredentialEncryptsAtRest(t *testing.T) {
	r, v, creds, _ := setupRegistry(t, &fakeClient{})
	ctx := context.Background()
	userID := uuid.New()

	a, err := r.GetOrCreateAgent(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, r.SetCredential(ctx, userID, "sk-fresh"))

	assert.Equal(t, "sk-fresh", a.Secret())

	stored, err := creds.Get(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, "sk-fresh", stored)

	plaintext, err := v.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, "sk-fresh", plaintext)
}

func TestRegistry_RemoveSessionDropsCacheOnly(t *testing.T) {
	r, _, _, _ := setupRegistry(t, &fakeClient{})
	ctx := context.Background()
	userID := uuid.New()

	a1, err := r.GetOrCreateAgent(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, r.SetModel(ctx, userID, "gpt-kept"))

	r.RemoveSession(userID)

	a2, err := r.GetOrCreateAgent(ctx, userID)
	require.NoError(t, err)
	assert.NotSame(t, a1, a2)

	// the persisted override survived the session
	assert.Equal(t, "gpt-kept", a2.Model())
}

func TestRegistry_PreloadSkipsCorruptRecords(t *testing.T) {
	r, v, creds, _ := setupRegistry(t, &fakeClient{})
	ctx := context.Background()

	good, err := v.Encrypt("sk-good")
	require.NoError(t, err)
	require.NoError(t, creds.Set(ctx, uuid.New(), good))
	require.NoError(t, creds.Set(ctx, uuid.New(), "garbage"))

	healthy, err := r.Preload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, healthy)
}
