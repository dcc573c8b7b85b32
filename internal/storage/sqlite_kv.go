package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLiteKV stores entries in the session_kv table of a local database file.
type SQLiteKV struct {
	db        *sql.DB
	namespace string
}

// NewSQLiteKV builds a store scoped to namespace. The handle stays owned by the caller.
func NewSQLiteKV(db *sql.DB, namespace string) *SQLiteKV {
	return &SQLiteKV{db: db, namespace: namespace}
}

func (s *SQLiteKV) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, s.namespace)
	for _, key := range keys {
		args = append(args, key)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	query := `SELECT key, value FROM session_kv WHERE namespace=? AND key IN (` + placeholders + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite kv get: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, val string
		if err := rows.Scan(&key, &val); err != nil {
			return nil, fmt.Errorf("sqlite kv scan: %w", err)
		}
		out[key] = val
	}
	return out, rows.Err()
}

// Set upserts all entries in one transaction.
func (s *SQLiteKV) Set(ctx context.Context, entries map[string]string) error {
	const query = `
        INSERT INTO session_kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
        ON CONFLICT (namespace, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`

	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		for key, val := range entries {
			if _, err := tx.ExecContext(ctx, query, s.namespace, key, val, now); err != nil {
				return fmt.Errorf("sqlite kv set: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteKV) Delete(ctx context.Context, keys ...string) error {
	const query = `DELETE FROM session_kv WHERE namespace=? AND key=?`

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, query, s.namespace, key); err != nil {
				return fmt.Errorf("sqlite kv delete: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteKV) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteKV) Close() error { return nil }
