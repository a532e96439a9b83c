package raster

import "math"

// Splat is one projected point ready for rasterization.
type Splat struct {
	X, Y    float64 // pixel center
	Z       float64 // 1/w, larger is nearer
	Radius  float64 // pixels
	R, G, B uint8
	Alpha   float64 // 0..1
	Shade   float64
}

// RasterizeSplat draws a soft disc with a Gaussian falloff. The splat is
// depth tested against the z-buffer and writes depth only where its
// coverage is at least half opaque.
func RasterizeSplat(fb *FrameBuffer, s Splat, lc *LightConfig) {
	if s.Alpha <= 0 || s.Radius <= 0 {
		return
	}
	r := s.Radius
	minX := int(math.Floor(s.X - r))
	maxX := int(math.Ceil(s.X + r))
	minY := int(math.Floor(s.Y - r))
	maxY := int(math.Ceil(s.Y + r))
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= fb.Width {
		maxX = fb.Width - 1
	}
	if maxY >= fb.Height {
		maxY = fb.Height - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	cr, cg, cb := lc.Tone(s.R, s.G, s.B, s.Shade)
	invR2 := 1 / (r * r)

	for py := minY; py <= maxY; py++ {
		dy := float64(py) + 0.5 - s.Y
		rowOff := py * fb.Width
		for px := minX; px <= maxX; px++ {
			dx := float64(px) + 0.5 - s.X
			d2 := (dx*dx + dy*dy) * invR2
			if d2 > 1 {
				continue
			}
			zIdx := rowOff + px
			if s.Z < fb.ZBuf[zIdx] {
				continue
			}
			a := s.Alpha * math.Exp(-2*d2)
			if a < 1.0/255 {
				continue
			}
			if a >= 0.5 {
				fb.ZBuf[zIdx] = s.Z
			}
			fb.blend(zIdx*4, cr, cg, cb, a)
		}
	}
}
