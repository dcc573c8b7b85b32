package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresKV stores entries in the session_kv table.
type PostgresKV struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewPostgresKV builds a store scoped to namespace. The pool stays owned by the caller.
func NewPostgresKV(pool *pgxpool.Pool, namespace string) *PostgresKV {
	return &PostgresKV{pool: pool, namespace: namespace}
}

func (p *PostgresKV) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	const query = `
        SELECT key, value FROM session_kv
        WHERE namespace=$1 AND key = ANY($2)`

	rows, err := p.pool.Query(ctx, query, p.namespace, keys)
	if err != nil {
		return nil, fmt.Errorf("postgres kv get: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var key, val string
		if err := rows.Scan(&key, &val); err != nil {
			return nil, fmt.Errorf("postgres kv scan: %w", err)
		}
		out[key] = val
	}
	return out, rows.Err()
}

// Set upserts all entries in one transaction.
func (p *PostgresKV) Set(ctx context.Context, entries map[string]string) error {
	const query = `
        INSERT INTO session_kv (namespace, key, value, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (namespace, key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for key, val := range entries {
			if _, err := tx.Exec(ctx, query, p.namespace, key, val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres kv set: %w", err)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, keys ...string) error {
	const query = `DELETE FROM session_kv WHERE namespace=$1 AND key = ANY($2)`
	if _, err := p.pool.Exec(ctx, query, p.namespace, keys); err != nil {
		return fmt.Errorf("postgres kv delete: %w", err)
	}
	return nil
}

func (p *PostgresKV) Close() error { return nil }
