package seen

import (
	"context"
	"fmt"

	"github.com/canvai/canvai/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert records the last-seen timestamp for a canvas id.
func (r *SQLiteRepository) Upsert(ctx context.Context, canvasID int32, lastSeenMillis int64) error {
	query := `INSERT INTO canvas_seen (canvas_id, last_seen) VALUES (?, ?)
			ON CONFLICT(canvas_id) DO UPDATE SET last_seen = excluded.last_seen`
	_, err := r.db.ExecContext(ctx, query, canvasID, lastSeenMillis)
	if err != nil {
		return fmt.Errorf("failed to upsert last-seen: %w", err)
	}
	return nil
}

// All lists every stored timestamp.
func (r *SQLiteRepository) All(ctx context.Context) (map[int32]int64, error) {
	query := `SELECT canvas_id, last_seen FROM canvas_seen`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select last-seen rows: %w", err)
	}
	defer rows.Close()

	result := make(map[int32]int64)
	for rows.Next() {
		var id int32
		var ts int64
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, err
		}
		result[id] = ts
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the record for a canvas id.
func (r *SQLiteRepository) Delete(ctx context.Context, canvasID int32) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM canvas_seen WHERE canvas_id = ?`, canvasID)
	if err != nil {
		return fmt.Errorf("failed to delete last-seen: %w", err)
	}
	return nil
}
