package mysql

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/seller-hub/internal/config"
	"github.com/bryanwahyu/seller-hub/internal/infra/db"
)

// Connect opens the mysql pool described by pool.
func Connect(ctx context.Context, dsn string, pool config.Pool) (*sql.DB, error) {
	return db.Open(ctx, "mysql", dsn, pool)
}
