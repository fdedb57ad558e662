package overrides

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/canvai/canvai/internal/common"
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

// Set upserts the model override for a user.
func (r *SQLiteRepository) Set(ctx context.Context, userID uuid.UUID, model string) error {
	query := `INSERT INTO model_overrides (user_id, model) VALUES (?, ?)
			ON CONFLICT(user_id) DO UPDATE SET model = excluded.model`
	_, err := r.db.ExecContext(ctx, query, userID.String(), model)
	if err != nil {
		return fmt.Errorf("failed to upsert model override: %w", err)
	}
	return nil
}

// Get returns the stored model id for a user.
func (r *SQLiteRepository) Get(ctx context.Context, userID uuid.UUID) (string, error) {
	query := `SELECT model FROM model_overrides WHERE user_id = ?`

	var model string
	err := r.db.QueryRowContext(ctx, query, userID.String()).Scan(&model)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to select model override: %w", err)
	}
	return model, nil
}
