// Package postgres provides PostgreSQL-based implementations of the store interfaces.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vigil-go/internal/config"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new PostgreSQL connection pool and verifies connectivity.
func NewDB(ctx context.Context, cfg *config.PostgresConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxOpenConns
	poolConfig.MinConns = cfg.MaxIdleConns
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// schema creates the alert definition and dedup marker tables.
// Dedup markers carry no foreign key: they outlive deleted definitions.
const schema = `
	CREATE TABLE IF NOT EXISTS alert_definitions (
		id VARCHAR(36) PRIMARY KEY,
		status VARCHAR(20) NOT NULL,
		author_id VARCHAR(64) NOT NULL,
		trigger_kind VARCHAR(64) NOT NULL,
		trigger_filters JSONB NOT NULL DEFAULT '{}',
		notification_kind VARCHAR(64) NOT NULL,
		notification_config JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alert_definitions_status ON alert_definitions(status);

	CREATE TABLE IF NOT EXISTS dedup_markers (
		alert_id VARCHAR(36) NOT NULL,
		record_id VARCHAR(255) NOT NULL,
		outcome VARCHAR(32) NOT NULL,
		fired_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (alert_id, record_id)
	);

	CREATE INDEX IF NOT EXISTS idx_dedup_markers_record ON dedup_markers(record_id);
`

// RunMigrations creates the required database tables.
func (db *DB) RunMigrations(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
