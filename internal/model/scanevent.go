package model

import "time"

// ScanEvent is one resolution of a dynamic code's short path. Events are
// append-only and are retained even after the code itself is deleted.
type ScanEvent struct {
	ID            int64     `json:"id"`
	CodeID        string    `json:"code_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	ClientContext string    `json:"client_context,omitempty"`
}
