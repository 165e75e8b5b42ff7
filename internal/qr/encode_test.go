package qr

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/erazemk/koda/internal/model"
)

func TestEncodeDeterministic(t *testing.T) {
	first, err := Encode("https://example.com/r/abc12345", model.TierMedium)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := Encode("https://example.com/r/abc12345", model.TierMedium)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("same content and tier produced different symbols")
	}
	if first.Size != len(first.Modules) {
		t.Errorf("size %d does not match matrix height %d", first.Size, len(first.Modules))
	}
	if first.Version < 1 || first.Version > 40 {
		t.Errorf("unexpected version %d", first.Version)
	}
	if first.QuietZone != MinQuietZone {
		t.Errorf("expected quiet zone %d, got %d", MinQuietZone, first.QuietZone)
	}
}

func TestEncodeAllTiers(t *testing.T) {
	for _, tier := range []string{model.TierLow, model.TierMedium, model.TierQuartile, model.TierHigh} {
		sym, err := Encode("hello", tier)
		if err != nil {
			t.Fatalf("Encode(%s): %v", tier, err)
		}
		if sym.Tier != tier {
			t.Errorf("expected tier %q, got %q", tier, sym.Tier)
		}
	}
}

func TestEncodeCapacityBoundary(t *testing.T) {
	limit := Capacity(model.TierMedium)

	if _, err := Encode(strings.Repeat("a", limit), model.TierMedium); err != nil {
		t.Errorf("content at exactly the capacity limit should encode: %v", err)
	}

	_, err := Encode(strings.Repeat("a", limit+1), model.TierMedium)
	var capErr *model.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if capErr.Length != limit+1 || capErr.Limit != limit || capErr.Tier != model.TierMedium {
		t.Errorf("capacity error fields wrong: %+v", capErr)
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	var valErr *model.ValidationError

	if _, err := Encode("", model.TierMedium); !errors.As(err, &valErr) {
		t.Errorf("expected ValidationError for empty content, got %v", err)
	}
	if _, err := Encode("hello", "extreme"); !errors.As(err, &valErr) {
		t.Errorf("expected ValidationError for unknown tier, got %v", err)
	}
}
