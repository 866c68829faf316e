// Package db carries the SQL schema and applies it on startup. The schema is
// idempotent (IF NOT EXISTS throughout), so applying on every boot is safe.
package db

import (
	"context"
	_ "embed"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/001_init.sql
var initSchema string

// Apply runs the embedded schema against the pool.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if _, err := pool.Exec(ctx, initSchema); err != nil {
		logger.Error("schema apply failed", "error", err)
		return err
	}
	logger.Info("schema applied")
	return nil
}
