// Package repositories opens the per-deployment sqlite database and bundles
// the keyed stores backed by it.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/canvai/canvai/internal/migrations"
	"github.com/canvai/canvai/internal/repositories/credentials"
	"github.com/canvai/canvai/internal/repositories/overrides"
	"github.com/canvai/canvai/internal/repositories/seen"
)

// Repos bundles the three persisted stores plus the shared handle, which the
// app closes on shutdown.
type Repos struct {
	Credentials credentials.Repository
	Overrides   overrides.Repository
	Seen        seen.Repository
	DB          *sql.DB
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the sqlite database at dsn, migrates it, and returns
// the bundled repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repos, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repos{
		Credentials: credentials.NewSQLiteRepository(db),
		Overrides:   overrides.NewSQLiteRepository(db),
		Seen:        seen.NewSQLiteRepository(db),
		DB:          db,
	}, nil
}
