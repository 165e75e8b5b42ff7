package qr

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/erazemk/koda/internal/model"
)

// renderSVG builds a standalone vector document for the symbol. The output
// has no XML declaration so it stays embeddable in HTML as-is. Coordinates
// are in module units; width/height carry the pixel scale.
func renderSVG(sym *Symbol, style model.Style, opts RenderOptions) ([]byte, error) {
	total := sym.Size + 2*style.Border
	px := total * style.Scale

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`+"\n",
		px, px, total, total)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`+"\n", total, total, style.Background)

	for y, row := range sym.Modules {
		for x, dark := range row {
			if !dark {
				continue
			}
			mx := x + style.Border
			my := y + style.Border
			if style.Shape == model.ShapeDot {
				fmt.Fprintf(&b, `<circle cx="%d.5" cy="%d.5" r=".5" fill="%s"/>`+"\n", mx, my, style.Foreground)
			} else {
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="1" height="1" fill="%s"/>`+"\n", mx, my, style.Foreground)
			}
		}
	}

	if opts.Logo != nil {
		if err := writeSVGLogo(&b, sym, style, opts); err != nil {
			return nil, err
		}
	}

	b.WriteString("</svg>\n")
	return []byte(b.String()), nil
}

// writeSVGLogo embeds the overlay as a base64 data URI centered on the
// symbol, under the same coverage ceiling as raster output.
func writeSVGLogo(b *strings.Builder, sym *Symbol, style model.Style, opts RenderOptions) error {
	w, h, err := logoTargetSize(sym, opts)
	if err != nil {
		return err
	}

	detected := http.DetectContentType(opts.Logo)
	if detected != "image/png" && detected != "image/jpeg" {
		return &model.RenderError{Reason: fmt.Sprintf("logo must be PNG or JPEG, got %s", detected)}
	}

	total := float64(sym.Size + 2*style.Border)
	x := (total - float64(w)) / 2
	y := (total - float64(h)) / 2
	fmt.Fprintf(b, `<image x="%.1f" y="%.1f" width="%d" height="%d" href="data:%s;base64,%s"/>`+"\n",
		x, y, w, h, detected, base64.StdEncoding.EncodeToString(opts.Logo))
	return nil
}
