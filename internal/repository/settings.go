package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingStore is the Postgres backend for the policy service.
type SettingStore struct {
	pool *pgxpool.Pool
}

// NewSettingStore constructs a SettingStore.
func NewSettingStore(pool *pgxpool.Pool) *SettingStore {
	return &SettingStore{pool: pool}
}

// Get returns the stored value and whether the key was present.
func (s *SettingStore) Get(ctx context.Context, key string) (int, bool, error) {
	var value int
	row := s.pool.QueryRow(ctx, `SELECT value FROM library_settings WHERE key=$1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("select setting: %w", err)
	}
	return value, true, nil
}

// Set upserts a setting value.
func (s *SettingStore) Set(ctx context.Context, key string, value int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO library_settings (key, value) VALUES ($1,$2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}
