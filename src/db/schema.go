package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements are idempotent so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash BYTEA NOT NULL,
		super_admin   BOOLEAN NOT NULL DEFAULT FALSE,
		last_login    TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id                     BIGSERIAL PRIMARY KEY,
		airtable_id            TEXT NOT NULL UNIQUE,
		institution            TEXT,
		usd                    NUMERIC(14, 2),
		last_successful_update TIMESTAMPTZ,
		plaid_account_id       TEXT UNIQUE,
		user_id                BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id          BIGSERIAL PRIMARY KEY,
		airtable_id TEXT NOT NULL UNIQUE,
		name        TEXT,
		usd         NUMERIC(14, 2),
		date        DATE,
		vendor      TEXT,
		notes       TEXT,
		account_id  TEXT REFERENCES accounts (plaid_account_id),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_date_idx ON transactions (date DESC)`,
	`CREATE TABLE IF NOT EXISTS sync_log (
		id             BIGSERIAL PRIMARY KEY,
		sync_type      TEXT NOT NULL,
		started_at     TIMESTAMPTZ NOT NULL,
		completed_at   TIMESTAMPTZ,
		status         TEXT NOT NULL,
		records_synced INTEGER NOT NULL DEFAULT 0,
		error_message  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS sync_log_started_at_idx ON sync_log (started_at DESC)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
