// Package overrides persists per-user model choices that survive restarts.
package overrides

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the userID → model id store.
type Repository interface {
	// Set upserts the model override for a user.
	Set(ctx context.Context, userID uuid.UUID, model string) error

	// Get returns the stored model id, or common.ErrorNotFound.
	Get(ctx context.Context, userID uuid.UUID) (string, error)
}
