// Package shortpath mints the short, URL-safe tokens embedded in dynamic
// codes, backed by nanoid.
package shortpath

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for short paths.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the fixed number of characters in a short path. 62^8 paths make
// an accidental collision with a previously deleted (and possibly still
// printed) code negligible.
const Length = 8

// New returns a freshly minted short path. Uniqueness against the store is
// the caller's responsibility.
func New() (string, error) {
	path, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("shortpath: %w", err)
	}
	return path, nil
}
