// Package database owns the pgx connection pool and schema bootstrap.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the tables if needed. Keeping the migration in code
// means a fresh database bootstraps itself with no external tooling.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS books (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	isbn TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	copyright TEXT NOT NULL DEFAULT '',
	section TEXT NOT NULL,
	dewey_decimal TEXT NOT NULL,
	author_number TEXT NOT NULL DEFAULT '',
	call_number TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT 'library',
	source_person TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS book_copies (
	id BIGSERIAL PRIMARY KEY,
	book_id BIGINT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	accession_number TEXT NOT NULL UNIQUE,
	barcode TEXT NOT NULL UNIQUE,
	copy_number INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'available',
	date_added TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_book_copies_status ON book_copies(status);

CREATE TABLE IF NOT EXISTS patrons (
	id BIGSERIAL PRIMARY KEY,
	patron_id TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL,
	middle_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL,
	suffix TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE,
	barangay TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL,
	province TEXT NOT NULL,
	number TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'Active',
	age INTEGER,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS circulations (
	id BIGSERIAL PRIMARY KEY,
	book_copy_id BIGINT NOT NULL REFERENCES book_copies(id) ON DELETE CASCADE,
	patron_id BIGINT NOT NULL REFERENCES patrons(id) ON DELETE CASCADE,
	issue_date TIMESTAMPTZ NOT NULL,
	due_date TIMESTAMPTZ NOT NULL,
	renewal_date TIMESTAMPTZ,
	renewal_count INTEGER NOT NULL DEFAULT 0,
	overdue_by INTEGER NOT NULL DEFAULT 0,
	fine BIGINT NOT NULL DEFAULT 0,
	date_returned TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'borrowed'
);
CREATE INDEX IF NOT EXISTS idx_circulations_status ON circulations(status);
CREATE INDEX IF NOT EXISTS idx_circulations_patron ON circulations(patron_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_circulations_open_copy
	ON circulations(book_copy_id) WHERE status = 'borrowed';

CREATE TABLE IF NOT EXISTS library_settings (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance (
	id BIGSERIAL PRIMARY KEY,
	patron_id BIGINT,
	first_name TEXT NOT NULL,
	middle_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL,
	suffix TEXT NOT NULL DEFAULT '',
	province TEXT NOT NULL,
	city TEXT NOT NULL,
	barangay TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	number TEXT NOT NULL DEFAULT '',
	affiliation TEXT NOT NULL DEFAULT '',
	purpose_of_visit TEXT NOT NULL,
	time_in TIMESTAMPTZ NOT NULL,
	time_out TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS overdue_notices (
	circulation_id BIGINT PRIMARY KEY REFERENCES circulations(id) ON DELETE CASCADE,
	days_overdue INTEGER NOT NULL,
	projected_fine BIGINT NOT NULL,
	notified_at TIMESTAMPTZ NOT NULL
);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
