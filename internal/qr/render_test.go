package qr

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/erazemk/koda/internal/model"
)

func testSymbol(t *testing.T, tier string) *Symbol {
	t.Helper()
	sym, err := Encode("https://example.com/r/abc12345", tier)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return sym
}

// testLogo returns a small solid-color PNG.
func testLogo(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0xcc, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test logo: %v", err)
	}
	return buf.Bytes()
}

func TestRenderPNGDeterministic(t *testing.T) {
	sym := testSymbol(t, model.TierMedium)
	style := model.DefaultStyle()

	first, ct, err := Render(sym, style, RenderOptions{Format: FormatPNG})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}

	second, _, err := Render(sym, style, RenderOptions{Format: FormatPNG})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated renders are not byte-identical")
	}

	img, err := png.Decode(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("decoding rendered PNG: %v", err)
	}
	want := (sym.Size + 2*style.Border) * style.Scale
	if img.Bounds().Dx() != want {
		t.Errorf("expected %dpx wide image, got %d", want, img.Bounds().Dx())
	}

	// The corner lies in the quiet zone and must be background.
	r, g, b, _ := img.At(0, 0).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Errorf("quiet zone corner is not background: %d %d %d", r, g, b)
	}
}

func TestRenderBorderBelowQuietZone(t *testing.T) {
	sym := testSymbol(t, model.TierMedium)
	style := model.DefaultStyle()
	style.Border = sym.QuietZone - 1

	_, _, err := Render(sym, style, RenderOptions{Format: FormatPNG})
	var renderErr *model.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError for narrow border, got %v", err)
	}

	// The exact minimum is fine.
	style.Border = sym.QuietZone
	if _, _, err := Render(sym, style, RenderOptions{Format: FormatPNG}); err != nil {
		t.Errorf("minimum border should render: %v", err)
	}
}

func TestRenderBadColor(t *testing.T) {
	sym := testSymbol(t, model.TierMedium)
	style := model.DefaultStyle()
	style.Foreground = "red"

	_, _, err := Render(sym, style, RenderOptions{Format: FormatPNG})
	var valErr *model.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if valErr.Field != "fg_color" {
		t.Errorf("expected fg_color field, got %q", valErr.Field)
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	sym := testSymbol(t, model.TierMedium)

	_, _, err := Render(sym, model.DefaultStyle(), RenderOptions{Format: "gif"})
	var renderErr *model.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
}

func TestRenderSVG(t *testing.T) {
	sym := testSymbol(t, model.TierMedium)

	data, ct, err := Render(sym, model.DefaultStyle(), RenderOptions{Format: FormatSVG})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if ct != "image/svg+xml" {
		t.Errorf("expected image/svg+xml, got %q", ct)
	}

	doc := string(data)
	if strings.Contains(doc, "<?xml") {
		t.Error("SVG output must not carry an XML declaration")
	}
	if !strings.HasPrefix(doc, "<svg") {
		t.Errorf("expected document to start with <svg, got %q", doc[:20])
	}
	if !strings.Contains(doc, `fill="#ffffff"`) {
		t.Error("expected background rect in SVG output")
	}
}

func TestRenderJPEGQuality(t *testing.T) {
	sym := testSymbol(t, model.TierMedium)
	style := model.DefaultStyle()

	data, ct, err := Render(sym, style, RenderOptions{Format: FormatJPEG, Quality: 50})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
	if len(data) == 0 {
		t.Error("empty JPEG output")
	}

	_, _, err = Render(sym, style, RenderOptions{Format: FormatJPEG, Quality: 200})
	var renderErr *model.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError for out-of-range quality, got %v", err)
	}
}

func TestRenderDotShape(t *testing.T) {
	sym := testSymbol(t, model.TierMedium)
	square := model.DefaultStyle()
	dotted := model.DefaultStyle()
	dotted.Shape = model.ShapeDot

	a, _, err := Render(sym, square, RenderOptions{Format: FormatPNG})
	if err != nil {
		t.Fatalf("Render square: %v", err)
	}
	b, _, err := Render(sym, dotted, RenderOptions{Format: FormatPNG})
	if err != nil {
		t.Fatalf("Render dot: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("dot and square shapes rendered identically")
	}
}

func TestLogoCoverage(t *testing.T) {
	logo := testLogo(t)

	// Default fraction covers 4% of the symbol; the low tier only recovers
	// enough for 3%.
	low := testSymbol(t, model.TierLow)
	_, _, err := Render(low, model.DefaultStyle(), RenderOptions{Format: FormatPNG, Logo: logo})
	var renderErr *model.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError on low tier, got %v", err)
	}

	high := testSymbol(t, model.TierHigh)
	if _, _, err := Render(high, model.DefaultStyle(), RenderOptions{Format: FormatPNG, Logo: logo}); err != nil {
		t.Errorf("high tier should allow the default logo size: %v", err)
	}

	// An oversized logo is rejected even on the high tier.
	_, _, err = Render(high, model.DefaultStyle(), RenderOptions{Format: FormatPNG, Logo: logo, LogoFraction: 0.5})
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError for oversized logo, got %v", err)
	}

	// Same ceiling applies to vector output.
	_, _, err = Render(high, model.DefaultStyle(), RenderOptions{Format: FormatSVG, Logo: logo, LogoFraction: 0.5})
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError for oversized SVG logo, got %v", err)
	}
}

func TestParseColor(t *testing.T) {
	got, err := ParseColor("#1a2B3c")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if got.R != 0x1a || got.G != 0x2b || got.B != 0x3c || got.A != 0xff {
		t.Errorf("unexpected color %+v", got)
	}

	short, err := ParseColor("#f0c")
	if err != nil {
		t.Fatalf("ParseColor short form: %v", err)
	}
	if short.R != 0xff || short.G != 0x00 || short.B != 0xcc {
		t.Errorf("unexpected short-form color %+v", short)
	}

	for _, bad := range []string{"", "fff", "#ff", "#gggggg", "#fffffff"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
