package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queryGet reads a value. A row with a NULL value is a placeholder left by
// Update and reads as missing.
func queryGet(ctx context.Context, db executor, key string) ([]byte, bool, error) {
	var v []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	if v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

func querySet(ctx context.Context, db executor, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		key, nonNil(value),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func queryEnsureRow(ctx context.Context, db executor, key string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES ($1, NULL)
		ON CONFLICT (key) DO NOTHING`, key)
	if err != nil {
		return fmt.Errorf("ensure %s: %w", key, err)
	}
	return nil
}

func queryLockRow(ctx context.Context, db executor, key string) ([]byte, bool, error) {
	var v []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = $1 FOR UPDATE`, key).Scan(&v)
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", key, err)
	}
	if v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

func queryUpdateRow(ctx context.Context, db executor, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `UPDATE kv SET value = $2, updated_at = NOW() WHERE key = $1`, key, nonNil(value))
	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	return nil
}

// nonNil keeps an empty value distinct from the NULL placeholder.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
