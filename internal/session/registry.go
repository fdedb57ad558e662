package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canvai/canvai/internal/common"
	"github.com/canvai/canvai/internal/logging"
	"github.com/canvai/canvai/internal/provider"
	"github.com/canvai/canvai/internal/repositories/credentials"
	"github.com/canvai/canvai/internal/repositories/overrides"
	"github.com/canvai/canvai/internal/vault"
)

// DefaultCredentialID keys the deployment-wide shared credential in the
// credential store. Operators set it with vaultctl instead of leaving the
// key in the environment.
var DefaultCredentialID = uuid.Nil

// Defaults are the global fallbacks applied when a user has no persisted
// override: the deployment-wide secret and model from config.
type Defaults struct {
	Secret   string
	Model    string
	Timeout  time.Duration
	MaxPairs int
}

// Registry is the top-level userID → Agent cache and the integration point
// that resolves a user's persisted credential and model override on first
// access.
//
// The agent map is shared by worker threads (chat and model commands) and
// the main thread (connect/disconnect); sync.Map provides the atomic
// compute-if-absent and removal semantics, with no outer lock.
type Registry struct {
	vault    *vault.Vault
	creds    credentials.Repository
	models   overrides.Repository
	client   provider.Client
	defaults Defaults
	log      logging.Logger

	agents sync.Map // uuid.UUID → *Agent
}

// NewRegistry wires the registry to its stores and the provider client.
func NewRegistry(v *vault.Vault, creds credentials.Repository, models overrides.Repository, client provider.Client, defaults Defaults, log logging.Logger) *Registry {
	return &Registry{
		vault:    v,
		creds:    creds,
		models:   models,
		client:   client,
		defaults: defaults,
		log:      log,
	}
}

// GetOrCreateAgent returns the live agent for a user, constructing and
// caching it on first access. Two calls for the same user always yield the
// same instance; concurrent first calls race benignly on construction and
// LoadOrStore picks exactly one winner.
func (r *Registry) GetOrCreateAgent(ctx context.Context, userID uuid.UUID) (*Agent, error) {
	if cached, ok := r.agents.Load(userID); ok {
		return cached.(*Agent), nil
	}

	secret, err := r.resolveSecret(ctx, userID)
	if err != nil {
		return nil, err
	}
	model, err := r.resolveModel(ctx, userID)
	if err != nil {
		return nil, err
	}

	agent := NewAgent(userID, r.client, secret, model, r.defaults.Timeout, r.defaults.MaxPairs, r.log)
	actual, _ := r.agents.LoadOrStore(userID, agent)
	return actual.(*Agent), nil
}

// resolveSecret returns the user's stored credential, decrypted, falling
// back to the stored shared credential and then to the config default. A
// record that fails to decrypt is skipped with a warning, exactly like a
// corrupt record in a bulk load: one bad row must not take the user (or the
// batch) down.
func (r *Registry) resolveSecret(ctx context.Context, userID uuid.UUID) (string, error) {
	ciphertext, err := r.creds.Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) && userID != DefaultCredentialID {
		ciphertext, err = r.creds.Get(ctx, DefaultCredentialID)
	}
	if errors.Is(err, common.ErrorNotFound) {
		return r.defaults.Secret, nil
	}
	if err != nil {
		return "", err
	}

	secret, err := r.vault.Decrypt(ciphertext)
	if err != nil {
		r.log.Warn(ctx, "skipping undecryptable credential record", "user_id", userID.String(), "error", err)
		return r.defaults.Secret, nil
	}
	return secret, nil
}

func (r *Registry) resolveModel(ctx context.Context, userID uuid.UUID) (string, error) {
	model, err := r.models.Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return r.defaults.Model, nil
	}
	if err != nil {
		return "", err
	}
	return model, nil
}

// SetModel updates the live agent if one is cached and always persists the
// override, so the choice applies both immediately and after reconnects.
func (r *Registry) SetModel(ctx context.Context, userID uuid.UUID, model string) error {
	if cached, ok := r.agents.Load(userID); ok {
		cached.(*Agent).SetModel(model)
	}
	return r.models.Set(ctx, userID, model)
}

// SetCredential updates the live agent if one is cached and persists the
// vault-encrypted secret. The plaintext never reaches disk or logs.
func (r *Registry) SetCredential(ctx context.Context, userID uuid.UUID, secret string) error {
	if cached, ok := r.agents.Load(userID); ok {
		cached.(*Agent).SetCredential(secret)
	}

	ciphertext, err := r.vault.Encrypt(secret)
	if err != nil {
		return err
	}
	return r.creds.Set(ctx, userID, ciphertext)
}

// RemoveSession drops the cached agent when a user disconnects. Persisted
// model and credential are untouched; the next connect rebuilds the agent
// from them.
func (r *Registry) RemoveSession(userID uuid.UUID) {
	r.agents.Delete(userID)
}

// Preload bulk-decrypts every stored credential once at startup to surface
// corrupt records early. Bad records are logged and skipped; the count of
// healthy ones is returned.
func (r *Registry) Preload(ctx context.Context) (int, error) {
	records, err := r.creds.All(ctx)
	if err != nil {
		return 0, err
	}

	healthy := 0
	for userID, ciphertext := range records {
		if _, err := r.vault.Decrypt(ciphertext); err != nil {
			r.log.Warn(ctx, "skipping undecryptable credential record", "user_id", userID.String(), "error", err)
			continue
		}
		healthy++
	}
	return healthy, nil
}
