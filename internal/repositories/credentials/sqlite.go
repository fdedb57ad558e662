package credentials

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

// Set upserts the ciphertext for a user.
func (r *SQLiteRepository) Set(ctx context.Context, userID uuid.UUID, ciphertext string) error {
	query := `INSERT INTO credentials (user_id, ciphertext) VALUES (?, ?)
			ON CONFLICT(user_id) DO UPDATE SET ciphertext = excluded.ciphertext`
	_, err := r.db.ExecContext(ctx, query, userID.String(), ciphertext)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

// Get returns the stored ciphertext for a user.
func (r *SQLiteRepository) Get(ctx context.Context, userID uuid.UUID) (string, error) {
	query := `SELECT ciphertext FROM credentials WHERE user_id = ?`

	var ciphertext string
	err := r.db.QueryRowContext(ctx, query, userID.String()).Scan(&ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to select credential: %w", err)
	}
	return ciphertext, nil
}

// All lists every stored record. Rows whose user_id fails to parse as a UUID
// are skipped; they cannot belong to any live user.
func (r *SQLiteRepository) All(ctx context.Context) (map[uuid.UUID]string, error) {
	query := `SELECT user_id, ciphertext FROM credentials`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select credentials: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]string)
	for rows.Next() {
		var rawID, ciphertext string
		if err := rows.Scan(&rawID, &ciphertext); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			continue
		}
		result[id] = ciphertext
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
