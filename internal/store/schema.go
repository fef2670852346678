package store

import (
	"context"
	"database/sql"
)

const tableName = "cache_entries"

// schema is idempotent so the writer and any number of readers may run it independently.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cache_entries (
		key        TEXT PRIMARY KEY NOT NULL,
		category   TEXT NOT NULL,
		value_json TEXT NOT NULL,
		source     TEXT NOT NULL,
		symbol     TEXT,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_entries_category ON cache_entries(category)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_entries_symbol ON cache_entries(symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at)`,
}

const rowColumns = `key, category, value_json, source, symbol, created_at, expires_at, updated_at`

func ensureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return unavailable(err, "create cache schema")
		}
	}
	return nil
}
