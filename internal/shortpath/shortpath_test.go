package shortpath

import (
	"strings"
	"testing"
)

func TestNewLengthAndAlphabet(t *testing.T) {
	for range 100 {
		path, err := New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if len(path) != Length {
			t.Fatalf("expected length %d, got %d (%q)", Length, len(path), path)
		}
		for _, c := range path {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("path %q contains %q outside the alphabet", path, c)
			}
		}
	}
}

func TestNewDoesNotRepeatImmediately(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		path, err := New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if seen[path] {
			t.Fatalf("duplicate path %q within 1000 mints", path)
		}
		seen[path] = true
	}
}
