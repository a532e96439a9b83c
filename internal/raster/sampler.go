package raster

import (
	"image"
	"image/color"
	"math"
)

// sampleIcon returns the bilinear-filtered colour of icon at normalised
// coordinates (u, v). Texel centres sit at (i+0.5)/size and lookups clamp
// to the edge, so icon borders never bleed in from the opposite side.
func sampleIcon(icon *image.NRGBA, u, v float64) color.NRGBA {
	w, h := icon.Rect.Dx(), icon.Rect.Dy()
	fx := clampf(u*float64(w)-0.5, 0, float64(w-1))
	fy := clampf(v*float64(h)-0.5, 0, float64(h-1))

	x0, y0 := int(fx), int(fy)
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	tx, ty := fx-float64(x0), fy-float64(y0)

	row0 := icon.Pix[y0*icon.Stride:]
	row1 := icon.Pix[y1*icon.Stride:]
	var out [4]uint8
	for c := 0; c < 4; c++ {
		top := lerp(float64(row0[x0*4+c]), float64(row0[x1*4+c]), tx)
		bottom := lerp(float64(row1[x0*4+c]), float64(row1[x1*4+c]), tx)
		out[c] = uint8(math.Round(lerp(top, bottom, ty)))
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: out[3]}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clampf(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
