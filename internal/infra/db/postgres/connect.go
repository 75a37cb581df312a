package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/bryanwahyu/seller-hub/internal/config"
	"github.com/bryanwahyu/seller-hub/internal/infra/db"
)

// Connect opens the postgres pool described by pool.
func Connect(ctx context.Context, dsn string, pool config.Pool) (*sql.DB, error) {
	return db.Open(ctx, "postgres", dsn, pool)
}
