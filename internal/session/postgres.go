package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"holding-admin/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	errFailedParseDatabaseConfigFmt  = "session: failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "session: failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "session: failed to ping database: %w"
	errFailedEnsureSchemaFmt         = "session: failed to ensure schema: %w"
)

const (
	schemaSessionValues = `
		CREATE TABLE IF NOT EXISTS session_values (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			expires_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	querySelectValue = `
		SELECT value
		FROM session_values
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())
	`
	queryUpsertValue = `
		INSERT INTO session_values (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = NOW()
	`
	queryDeleteValues = `DELETE FROM session_values WHERE key = ANY($1)`
)

// PostgresKV stores values in a session_values table.
type PostgresKV struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgresKV opens a pool from cfg and makes sure the table exists.
func NewPostgresKV(ctx context.Context, cfg *config.DatabaseConfig, ttl time.Duration) (*PostgresKV, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf(errFailedParseDatabaseConfigFmt, err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.HealthCheckPeriod = poolHealthCheckPeriod
	poolConfig.MaxConnLifetime = poolMaxConnLifetime
	poolConfig.MaxConnIdleTime = poolMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf(errFailedCreateConnectionPoolFmt, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf(errFailedPingDatabaseFmt, err)
	}

	kv := &PostgresKV{pool: pool, ttl: ttl}
	if err := kv.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return kv, nil
}

func (p *PostgresKV) ensureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSessionValues); err != nil {
		return fmt.Errorf(errFailedEnsureSchemaFmt, err)
	}
	return nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, querySelectValue, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	var expiresAt *time.Time
	if p.ttl > 0 {
		t := time.Now().Add(p.ttl)
		expiresAt = &t
	}
	_, err := p.pool.Exec(ctx, queryUpsertValue, key, value, expiresAt)
	return err
}

func (p *PostgresKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := p.pool.Exec(ctx, queryDeleteValues, keys)
	return err
}

func (p *PostgresKV) Close() error {
	p.pool.Close()
	return nil
}
