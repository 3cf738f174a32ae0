package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the given schema statements in order. Statements are
// written idempotent (CREATE TABLE IF NOT EXISTS) so every service can run
// its own bootstrap on start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	return nil
}
