package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// scan_events deliberately has no foreign key to codes: events are retained
// for audit after a code is deleted.
const schema = `
CREATE TABLE IF NOT EXISTS codes (
    id              TEXT PRIMARY KEY,
    kind            TEXT NOT NULL CHECK (kind IN ('static', 'dynamic')),
    payload         TEXT NOT NULL,
    destination     TEXT,
    ec_tier         TEXT NOT NULL DEFAULT 'medium' CHECK (ec_tier IN ('low', 'medium', 'quartile', 'high')),
    fg_color        TEXT NOT NULL DEFAULT '#000000',
    bg_color        TEXT NOT NULL DEFAULT '#ffffff',
    scale           INTEGER NOT NULL DEFAULT 8 CHECK (scale >= 1),
    border          INTEGER NOT NULL DEFAULT 4 CHECK (border >= 0),
    shape           TEXT NOT NULL DEFAULT 'square' CHECK (shape IN ('square', 'dot')),
    title           TEXT,
    description     TEXT,
    scan_count      INTEGER NOT NULL DEFAULT 0 CHECK (scan_count >= 0),
    last_scanned_at DATETIME,
    created_at      DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_codes_short_path
    ON codes(payload) WHERE kind = 'dynamic';

CREATE TABLE IF NOT EXISTS scan_events (
    id             INTEGER PRIMARY KEY,
    code_id        TEXT NOT NULL,
    occurred_at    DATETIME NOT NULL,
    client_context TEXT
);

CREATE INDEX IF NOT EXISTS idx_scan_events_code_time
    ON scan_events(code_id, occurred_at);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
