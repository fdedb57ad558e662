// Package credentials persists per-user encrypted provider secrets. Only
// ciphertext produced by the vault ever reaches this store.
package credentials

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the userID → ciphertext store.
type Repository interface {
	// Set upserts the encrypted secret for a user.
	Set(ctx context.Context, userID uuid.UUID, ciphertext string) error

	// Get returns the stored ciphertext, or common.ErrorNotFound.
	Get(ctx context.Context, userID uuid.UUID) (string, error)

	// All returns every stored record, for bulk preload at startup.
	All(ctx context.Context) (map[uuid.UUID]string, error)
}
