// Package db holds what the mysql and postgres repositories share.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bryanwahyu/seller-hub/internal/config"
)

const pingTimeout = 5 * time.Second

// Open opens driver, sizes the pool and pings once. The driver must already
// be registered by the caller's import.
func Open(ctx context.Context, driver, dsn string, pool config.Pool) (*sql.DB, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	ApplyPool(conn, pool)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return conn, nil
}

// ApplyPool sets the limits that are non-zero in p.
func ApplyPool(conn *sql.DB, p config.Pool) {
	if p.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
}
