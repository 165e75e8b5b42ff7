// Package qr turns content strings into abstract symbols and renders
// symbols into image bytes. Encoding and rendering are pure functions of
// their inputs, so the same code always produces byte-identical images.
package qr

import (
	"github.com/erazemk/koda/internal/model"
	qrcode "github.com/skip2/go-qrcode"
)

// MinQuietZone is the blank margin, in modules, required around a symbol
// for reliable optical recognition.
const MinQuietZone = 4

// Symbol is the encoded matrix of dark modules, without the quiet zone.
type Symbol struct {
	Modules   [][]bool // Modules[y][x], true = dark
	Size      int      // modules per side
	Version   int      // symbol version, 1-40
	Tier      string   // error-correction tier the symbol was built with
	QuietZone int      // minimum quiet zone width in modules
}

// capacities holds the binary-mode byte ceiling of a version-40 symbol for
// each error-correction tier.
var capacities = map[string]int{
	model.TierLow:      2953,
	model.TierMedium:   2331,
	model.TierQuartile: 1663,
	model.TierHigh:     1273,
}

// Capacity returns the maximum content length in bytes for the given tier,
// or 0 for an unknown tier.
func Capacity(tier string) int {
	return capacities[tier]
}

var levels = map[string]qrcode.RecoveryLevel{
	model.TierLow:      qrcode.Low,
	model.TierMedium:   qrcode.Medium,
	model.TierQuartile: qrcode.High,
	model.TierHigh:     qrcode.Highest,
}

// Encode builds the symbol for the given content and error-correction tier.
// Content that does not fit the tier's capacity fails with a CapacityError,
// never a truncated symbol.
func Encode(content, tier string) (*Symbol, error) {
	level, ok := levels[tier]
	if !ok {
		return nil, &model.ValidationError{Field: "tier", Reason: "must be low, medium, quartile, or high"}
	}
	if content == "" {
		return nil, &model.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if len(content) > capacities[tier] {
		return nil, &model.CapacityError{Length: len(content), Limit: capacities[tier], Tier: tier}
	}

	q, err := qrcode.New(content, level)
	if err != nil {
		// The library only fails on content that exceeds the version
		// capacity for the chosen level.
		return nil, &model.CapacityError{Length: len(content), Limit: capacities[tier], Tier: tier}
	}
	q.DisableBorder = true

	modules := q.Bitmap()
	return &Symbol{
		Modules:   modules,
		Size:      len(modules),
		Version:   q.VersionNumber,
		Tier:      tier,
		QuietZone: MinQuietZone,
	}, nil
}
