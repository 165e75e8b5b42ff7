package model

import (
	"errors"
	"fmt"
)

// Sentinel errors, compared with errors.Is.
var (
	// ErrNotFound is returned for operations addressing a code or short
	// path that does not exist.
	ErrNotFound = errors.New("code not found")

	// ErrShortPathConflict is returned when a minted short path collides
	// with an existing dynamic code.
	ErrShortPathConflict = errors.New("short path already exists")

	// ErrImmutableField is returned when an update tries to change the
	// kind, payload, or style of an existing code.
	ErrImmutableField = errors.New("field is immutable after creation")
)

// ValidationError reports a rejected input field with enough detail for the
// caller to correct it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CapacityError reports content that does not fit the chosen
// error-correction tier.
type CapacityError struct {
	Length int
	Limit  int
	Tier   string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("content is %d bytes but tier %q holds at most %d", e.Length, e.Tier, e.Limit)
}

// RenderError reports a styling or format combination that would produce an
// unreliable or unsupported image.
type RenderError struct {
	Reason string
}

func (e *RenderError) Error() string {
	return "render: " + e.Reason
}
