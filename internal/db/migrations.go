package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: listing sorts on created_at by default; the index keeps
	// large lists from scanning the whole table.
	`CREATE INDEX IF NOT EXISTS idx_codes_created_at ON codes(created_at)`,
}

// Migrate runs the database schema migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
