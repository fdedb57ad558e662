package canvas

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/canvai/canvai/internal/dbx"
	"github.com/canvai/canvai/internal/logging"
	"github.com/canvai/canvai/internal/repositories/seen"
)

// Tracker is the usage tracker: last-seen timestamps per canvas id, fed by
// host observation events (a region containing the asset became visible).
// MarkSeen is cheap and in-memory; Flush persists the whole table so the
// timestamps survive restarts.
type Tracker struct {
	db   *sql.DB
	repo seen.Repository
	log  logging.Logger

	mu       sync.Mutex
	lastSeen map[int32]int64 // epoch millis
}

// NewTracker returns a Tracker backed by the given store.
func NewTracker(db *sql.DB, repo seen.Repository, log logging.Logger) *Tracker {
	return &Tracker{
		db:       db,
		repo:     repo,
		log:      log,
		lastSeen: make(map[int32]int64),
	}
}

// Load restores persisted timestamps. Call once at startup.
func (t *Tracker) Load(ctx context.Context) error {
	stored, err := t.repo.All(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ts := range stored {
		t.lastSeen[id] = ts
	}
	return nil
}

// MarkSeen records now() as the last-seen timestamp for a canvas id. Safe
// from any thread.
func (t *Tracker) MarkSeen(canvasID int32) {
	now := time.Now().UnixMilli()

	t.mu.Lock()
	t.lastSeen[canvasID] = now
	t.mu.Unlock()
}

// LastSeen returns the last-seen timestamp for a canvas id, and whether the
// id has ever been marked.
func (t *Tracker) LastSeen(canvasID int32) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastSeen[canvasID]
	return ts, ok
}

// Flush upserts every in-memory timestamp in one transaction. Runs on a
// timer and at shutdown.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	snapshot := make(map[int32]int64, len(t.lastSeen))
	for id, ts := range t.lastSeen {
		snapshot[id] = ts
	}
	t.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	return dbx.WithTx(ctx, t.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := seen.NewSQLiteRepository(tx)
		for id, ts := range snapshot {
			if err := repo.Upsert(ctx, id, ts); err != nil {
				return err
			}
		}
		return nil
	})
}

// Forget drops the timestamp for a cleaned-up canvas id, in memory and in
// the store.
func (t *Tracker) Forget(ctx context.Context, canvasID int32) {
	t.mu.Lock()
	delete(t.lastSeen, canvasID)
	t.mu.Unlock()

	if err := t.repo.Delete(ctx, canvasID); err != nil {
		t.log.Warn(ctx, "failed to delete last-seen record", "canvas_id", canvasID, "error", err)
	}
}
