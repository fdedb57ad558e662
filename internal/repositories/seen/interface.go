// Package seen persists last-seen timestamps per canvas id, the age basis
// for asset cleanup.
package seen

import "context"

// Repository is the canvasID → last-seen (epoch millis) store.
type Repository interface {
	// Upsert records the last-seen timestamp for a canvas id.
	Upsert(ctx context.Context, canvasID int32, lastSeenMillis int64) error

	// All returns every stored timestamp, for restore at startup.
	All(ctx context.Context) (map[int32]int64, error)

	// Delete removes the record for a cleaned-up canvas id.
	Delete(ctx context.Context, canvasID int32) error
}
