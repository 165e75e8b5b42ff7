package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/koda/internal/model"
)

const codeColumns = `id, kind, payload, destination, ec_tier, fg_color, bg_color,
	scale, border, shape, title, description, scan_count, last_scanned_at,
	created_at, updated_at`

// CreateCode persists a fully populated code. The caller assigns the ID,
// payload, and timestamps. A dynamic payload colliding with an existing one
// fails with ErrShortPathConflict.
func CreateCode(ctx context.Context, db *sql.DB, c *model.Code) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO codes (id, kind, payload, destination, ec_tier, fg_color, bg_color,
		                    scale, border, shape, title, description, scan_count,
		                    created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		c.ID, c.Kind, c.Payload, nullIfEmpty(c.Destination), c.Tier,
		c.Style.Foreground, c.Style.Background, c.Style.Scale, c.Style.Border, c.Style.Shape,
		nullIfEmpty(c.Title), nullIfEmpty(c.Description), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return model.ErrShortPathConflict
		}
		return fmt.Errorf("creating code: %w", err)
	}
	return nil
}

// GetCode returns a code by ID.
func GetCode(ctx context.Context, db *sql.DB, id string) (*model.Code, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+codeColumns+` FROM codes WHERE id = ?`, id)

	c, err := scanCode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting code: %w", err)
	}
	return c, nil
}

// GetCodeByShortPath returns the dynamic code whose payload is the given
// short path. Static payloads never match.
func GetCodeByShortPath(ctx context.Context, db *sql.DB, path string) (*model.Code, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+codeColumns+` FROM codes WHERE kind = 'dynamic' AND payload = ?`, path)

	c, err := scanCode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting code by short path: %w", err)
	}
	return c, nil
}

// UpdateCode applies the mutable fields in a single statement; nil fields
// keep their stored value. Kind, payload, and style are not reachable from
// here at all.
func UpdateCode(ctx context.Context, db *sql.DB, id string, destination, title, description *string, now time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE codes SET
		    destination = COALESCE(?, destination),
		    title       = COALESCE(?, title),
		    description = COALESCE(?, description),
		    updated_at  = ?
		 WHERE id = ?`,
		destination, title, description, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating code: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteCode removes a code. Its scan events are retained for audit.
func DeleteCode(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM codes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting code: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFound
	}
	return nil
}

// sortColumns whitelists the ORDER BY targets for ListCodes.
var sortColumns = map[string]string{
	model.SortCreatedAt: "created_at",
	model.SortScanCount: "scan_count",
	model.SortTitle:     "title",
}

// ListCodes returns one page of codes matching the filter.
func ListCodes(ctx context.Context, db *sql.DB, f model.CodeFilter) ([]model.Code, error) {
	where, args := buildFilter(f)

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if f.Ascending {
		direction = "ASC"
	}

	query := `SELECT ` + codeColumns + ` FROM codes` + where +
		` ORDER BY ` + column + ` ` + direction + `, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing codes: %w", err)
	}
	defer rows.Close()

	var codes []model.Code
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning code: %w", err)
		}
		codes = append(codes, *c)
	}
	return codes, rows.Err()
}

// CountCodes returns the total number of codes matching the filter,
// independent of pagination.
func CountCodes(ctx context.Context, db *sql.DB, f model.CodeFilter) (int64, error) {
	where, args := buildFilter(f)

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM codes`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("counting codes: %w", err)
	}
	return total, nil
}

// buildFilter translates a CodeFilter into a WHERE clause and its arguments.
func buildFilter(f model.CodeFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		clauses = append(clauses, "(payload LIKE ? OR title LIKE ? OR description LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*model.Code, error) {
	c := &model.Code{}
	var destination, title, description sql.NullString
	var lastScanned sql.NullTime

	err := row.Scan(&c.ID, &c.Kind, &c.Payload, &destination, &c.Tier,
		&c.Style.Foreground, &c.Style.Background, &c.Style.Scale, &c.Style.Border, &c.Style.Shape,
		&title, &description, &c.ScanCount, &lastScanned, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Destination = destination.String
	c.Title = title.String
	c.Description = description.String
	if lastScanned.Valid {
		t := lastScanned.Time.UTC()
		c.LastScannedAt = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
