// Package postgres opens the database/sql pool on the pgx driver and applies
// the schema the stores expect.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"verigate/internal/platform/config"
)

// Open connects and pings. Returns nil when no URL is configured.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// Migrate creates the tables the stores use. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		document_number TEXT,
		evidence_refs TEXT[] NOT NULL DEFAULT '{}',
		submitted_at TIMESTAMPTZ NOT NULL,
		reviewed_at TIMESTAMPTZ,
		reviewed_by TEXT,
		rejection_reason TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS documents_owner_idx ON documents (owner_id, type, submitted_at)`,
	`CREATE INDEX IF NOT EXISTS documents_pending_idx ON documents (submitted_at) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS role_profiles (
		user_id UUID NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		completion INT NOT NULL DEFAULT 0,
		level TEXT NOT NULL DEFAULT 'none',
		submitted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, role)
	)`,
	`CREATE TABLE IF NOT EXISTS personal_info (
		user_id UUID PRIMARY KEY,
		full_name TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		residential_address TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id UUID PRIMARY KEY,
		category TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		user_id UUID,
		subject TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		decision TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		actor_id TEXT NOT NULL DEFAULT '',
		document_number_hash TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_user_idx ON audit_events (user_id, timestamp)`,
}
