package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"net/http"

	xdraw "golang.org/x/image/draw"

	"github.com/erazemk/koda/internal/model"
)

// Output formats.
const (
	FormatPNG  = "png"
	FormatSVG  = "svg"
	FormatJPEG = "jpeg"
)

// DefaultJPEGQuality is the compression quality used when none is given.
const DefaultJPEGQuality = 85

// DefaultLogoFraction is the logo's width as a fraction of the symbol width.
const DefaultLogoFraction = 0.2

// logoCoverage caps the fraction of symbol area a logo may obscure, at half
// of each tier's error-correction recovery capacity.
var logoCoverage = map[string]float64{
	model.TierLow:      0.03,
	model.TierMedium:   0.07,
	model.TierQuartile: 0.12,
	model.TierHigh:     0.15,
}

// RenderOptions selects the output encoding of a render call.
type RenderOptions struct {
	Format       string  // png, svg, or jpeg
	Quality      int     // JPEG quality 1-100, 0 means DefaultJPEGQuality
	Logo         []byte  // optional overlay image (PNG or JPEG bytes)
	LogoFraction float64 // logo width as a fraction of symbol width, 0 means DefaultLogoFraction
}

// Render produces image bytes and their content type for a symbol. Pure:
// identical inputs always yield identical bytes.
func Render(sym *Symbol, style model.Style, opts RenderOptions) ([]byte, string, error) {
	if style.Scale < 1 {
		return nil, "", &model.RenderError{Reason: "scale must be at least 1"}
	}
	if style.Border < sym.QuietZone {
		return nil, "", &model.RenderError{
			Reason: fmt.Sprintf("border of %d modules is below the %d-module quiet zone", style.Border, sym.QuietZone),
		}
	}

	fg, err := ParseColor(style.Foreground)
	if err != nil {
		return nil, "", &model.ValidationError{Field: "fg_color", Reason: err.Error()}
	}
	bg, err := ParseColor(style.Background)
	if err != nil {
		return nil, "", &model.ValidationError{Field: "bg_color", Reason: err.Error()}
	}

	switch opts.Format {
	case FormatSVG:
		data, err := renderSVG(sym, style, opts)
		if err != nil {
			return nil, "", err
		}
		return data, "image/svg+xml", nil
	case FormatPNG:
		logo, err := rasterLogo(sym, style, opts)
		if err != nil {
			return nil, "", err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, rasterize(sym, style, fg, bg, logo)); err != nil {
			return nil, "", fmt.Errorf("encoding PNG: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case FormatJPEG:
		quality := opts.Quality
		if quality == 0 {
			quality = DefaultJPEGQuality
		}
		if quality < 1 || quality > 100 {
			return nil, "", &model.RenderError{Reason: "jpeg quality must be between 1 and 100"}
		}
		logo, err := rasterLogo(sym, style, opts)
		if err != nil {
			return nil, "", err
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, rasterize(sym, style, fg, bg, logo), &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("encoding JPEG: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		return nil, "", &model.RenderError{Reason: fmt.Sprintf("unsupported format %q", opts.Format)}
	}
}

// ParseColor parses a #RGB or #RRGGBB hex color.
func ParseColor(s string) (color.NRGBA, error) {
	hexVal := func(c byte) (uint8, bool) {
		switch {
		case c >= '0' && c <= '9':
			return c - '0', true
		case c >= 'a' && c <= 'f':
			return c - 'a' + 10, true
		case c >= 'A' && c <= 'F':
			return c - 'A' + 10, true
		}
		return 0, false
	}

	if len(s) == 0 || s[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("color %q must start with '#'", s)
	}

	var r, g, b uint8
	switch len(s) {
	case 4: // #RGB
		vals := make([]uint8, 3)
		for i := range 3 {
			v, ok := hexVal(s[i+1])
			if !ok {
				return color.NRGBA{}, fmt.Errorf("color %q has a non-hex digit", s)
			}
			vals[i] = v<<4 | v
		}
		r, g, b = vals[0], vals[1], vals[2]
	case 7: // #RRGGBB
		vals := make([]uint8, 3)
		for i := range 3 {
			hi, ok1 := hexVal(s[2*i+1])
			lo, ok2 := hexVal(s[2*i+2])
			if !ok1 || !ok2 {
				return color.NRGBA{}, fmt.Errorf("color %q has a non-hex digit", s)
			}
			vals[i] = hi<<4 | lo
		}
		r, g, b = vals[0], vals[1], vals[2]
	default:
		return color.NRGBA{}, fmt.Errorf("color %q must be #RGB or #RRGGBB", s)
	}

	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// rasterize draws the symbol into a pixel image. Modules land on exact
// pixel boundaries so raster output stays sharp at module edges.
func rasterize(sym *Symbol, style model.Style, fg, bg color.NRGBA, logo image.Image) *image.NRGBA {
	total := (sym.Size + 2*style.Border) * style.Scale
	img := image.NewNRGBA(image.Rect(0, 0, total, total))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for y, row := range sym.Modules {
		for x, dark := range row {
			if !dark {
				continue
			}
			px := (x + style.Border) * style.Scale
			py := (y + style.Border) * style.Scale
			rect := image.Rect(px, py, px+style.Scale, py+style.Scale)
			if style.Shape == model.ShapeDot {
				drawDot(img, rect, fg)
			} else {
				draw.Draw(img, rect, image.NewUniform(fg), image.Point{}, draw.Src)
			}
		}
	}

	if logo != nil {
		b := logo.Bounds()
		offX := (total - b.Dx()) / 2
		offY := (total - b.Dy()) / 2
		target := image.Rect(offX, offY, offX+b.Dx(), offY+b.Dy())
		draw.Draw(img, target, logo, b.Min, draw.Over)
	}

	return img
}

// drawDot fills the circle inscribed in rect.
func drawDot(img *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	cx := float64(rect.Min.X+rect.Max.X) / 2
	cy := float64(rect.Min.Y+rect.Max.Y) / 2
	radius := float64(rect.Dx()) / 2
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= radius*radius {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

// rasterLogo validates, decodes, and downscales the overlay image to its
// target size in pixels. Overlays that would cover more of the symbol than
// the tier's error correction can recover are rejected. Returns nil when no
// logo was requested.
func rasterLogo(sym *Symbol, style model.Style, opts RenderOptions) (image.Image, error) {
	if opts.Logo == nil {
		return nil, nil
	}

	w, h, err := logoTargetSize(sym, opts)
	if err != nil {
		return nil, err
	}

	// Sniff actual MIME type from bytes (not trusting the caller).
	detected := http.DetectContentType(opts.Logo)
	if detected != "image/png" && detected != "image/jpeg" {
		return nil, &model.RenderError{Reason: fmt.Sprintf("logo must be PNG or JPEG, got %s", detected)}
	}

	src, _, err := image.Decode(bytes.NewReader(opts.Logo))
	if err != nil {
		return nil, &model.RenderError{Reason: "decoding logo: " + err.Error()}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w*style.Scale, h*style.Scale))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst, nil
}

// logoTargetSize computes the square region, in modules, the logo is fitted
// into, and enforces the coverage ceiling.
func logoTargetSize(sym *Symbol, opts RenderOptions) (w, h int, err error) {
	frac := opts.LogoFraction
	if frac == 0 {
		frac = DefaultLogoFraction
	}
	if frac < 0 || frac > 1 {
		return 0, 0, &model.RenderError{Reason: "logo fraction must be between 0 and 1"}
	}

	limit := logoCoverage[sym.Tier]
	if frac*frac > limit {
		return 0, 0, &model.RenderError{
			Reason: fmt.Sprintf("logo would cover %.1f%% of the symbol, above the %.1f%% the %s tier can recover",
				frac*frac*100, limit*100, sym.Tier),
		}
	}

	side := int(float64(sym.Size) * frac)
	if side < 1 {
		side = 1
	}
	return side, side, nil
}
