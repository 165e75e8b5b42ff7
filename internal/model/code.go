package model

import "time"

// Code kinds.
const (
	KindStatic  = "static"
	KindDynamic = "dynamic"
)

// Error-correction tiers, ordered by increasing redundancy.
const (
	TierLow      = "low"
	TierMedium   = "medium"
	TierQuartile = "quartile"
	TierHigh     = "high"
)

// Module shapes.
const (
	ShapeSquare = "square"
	ShapeDot    = "dot"
)

// Style describes the visual parameters of a code. Frozen at creation:
// a code that has already been printed must keep rendering identically.
type Style struct {
	Foreground string `json:"fg_color"`
	Background string `json:"bg_color"`
	Scale      int    `json:"scale"`
	Border     int    `json:"border"`
	Shape      string `json:"shape"`
}

// DefaultStyle returns the style applied when a creation request leaves
// fields unset.
func DefaultStyle() Style {
	return Style{
		Foreground: "#000000",
		Background: "#ffffff",
		Scale:      8,
		Border:     4,
		Shape:      ShapeSquare,
	}
}

// Code is a scannable code. For static codes the payload is the encoded
// content itself; for dynamic codes it is the minted short path that
// resolves to Destination at scan time.
type Code struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Payload       string     `json:"payload"`
	Destination   string     `json:"destination,omitempty"`
	Tier          string     `json:"ec_tier"`
	Style         Style      `json:"style"`
	Title         string     `json:"title,omitempty"`
	Description   string     `json:"description,omitempty"`
	ScanCount     int64      `json:"scan_count"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Sort keys accepted by the listing operation.
const (
	SortCreatedAt = "created_at"
	SortScanCount = "scan_count"
	SortTitle     = "title"
)

// CodeFilter selects and orders a page of codes.
type CodeFilter struct {
	Kind      string // empty, "static", or "dynamic"
	Search    string // matched against payload, title, and description
	SortBy    string // created_at, scan_count, or title
	Ascending bool
	Limit     int
	Offset    int
}
