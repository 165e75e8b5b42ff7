package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/koda/internal/model"
)

// RecordScan applies one scan of a dynamic code: the counter increment and
// the last_scanned_at advance happen inside a single UPDATE, so concurrent
// scans can never lose an increment or move the timestamp backwards. The
// event ledger is appended afterwards; counter and ledger are only
// eventually consistent with each other.
//
// Returns ErrNotFound when the code no longer exists (deleted between
// resolution and recording) or is not dynamic.
func RecordScan(ctx context.Context, db *sql.DB, codeID string, occurredAt time.Time, clientContext string) error {
	occurredAt = occurredAt.UTC()

	result, err := db.ExecContext(ctx,
		`UPDATE codes SET
		    scan_count = scan_count + 1,
		    last_scanned_at = CASE
		        WHEN last_scanned_at IS NULL OR last_scanned_at < ? THEN ?
		        ELSE last_scanned_at
		    END
		 WHERE id = ? AND kind = 'dynamic'`,
		occurredAt, occurredAt, codeID,
	)
	if err != nil {
		return fmt.Errorf("recording scan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording scan: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFound
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO scan_events (code_id, occurred_at, client_context) VALUES (?, ?, ?)`,
		codeID, occurredAt, nullIfEmpty(clientContext),
	)
	if err != nil {
		return fmt.Errorf("appending scan event: %w", err)
	}
	return nil
}

// ListScanEvents returns scan events for a code, newest first. A zero since
// means no lower bound; a limit of 0 means no cap.
func ListScanEvents(ctx context.Context, db *sql.DB, codeID string, since time.Time, limit int) ([]model.ScanEvent, error) {
	query := `SELECT id, code_id, occurred_at, client_context FROM scan_events WHERE code_id = ?`
	args := []any{codeID}

	if !since.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY occurred_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing scan events: %w", err)
	}
	defer rows.Close()

	var events []model.ScanEvent
	for rows.Next() {
		var ev model.ScanEvent
		var clientContext sql.NullString
		if err := rows.Scan(&ev.ID, &ev.CodeID, &ev.OccurredAt, &clientContext); err != nil {
			return nil, fmt.Errorf("scanning scan event: %w", err)
		}
		ev.ClientContext = clientContext.String
		ev.OccurredAt = ev.OccurredAt.UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountScanEvents returns the ledger total for a code, usable to
// double-check the running counter.
func CountScanEvents(ctx context.Context, db *sql.DB, codeID string) (int64, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scan_events WHERE code_id = ?`, codeID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("counting scan events: %w", err)
	}
	return total, nil
}
