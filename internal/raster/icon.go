package raster

import "image"

// BlitIcon draws icon scaled into the rectangle at (left, top) with bilinear
// filtering. Icons are screen overlays: no depth test, alpha-over blending.
func BlitIcon(fb *FrameBuffer, icon *image.NRGBA, left, top, w, h float64) {
	if icon == nil || w <= 0 || h <= 0 || icon.Rect.Dx() == 0 || icon.Rect.Dy() == 0 {
		return
	}
	x0, y0 := int(left), int(top)
	x1, y1 := int(left+w+0.5), int(top+h+0.5)
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > fb.Width {
		x1 = fb.Width
	}
	if y1 > fb.Height {
		y1 = fb.Height
	}

	for py := y0; py < y1; py++ {
		v := (float64(py) + 0.5 - top) / h
		if v < 0 || v >= 1 {
			continue
		}
		for px := x0; px < x1; px++ {
			u := (float64(px) + 0.5 - left) / w
			if u < 0 || u >= 1 {
				continue
			}
			c := sampleIcon(icon, u, v)
			if c.A == 0 {
				continue
			}
			fb.blend((py*fb.Width+px)*4, float64(c.R), float64(c.G), float64(c.B), float64(c.A)/255)
		}
	}
}
