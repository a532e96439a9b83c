package raster

import (
	"image"
	"math"
)

// FrameBuffer holds the rendering target as flat slices for cache locality.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // non-premultiplied RGBA interleaved, len = W*H*4
	ZBuf   []float64 // per-pixel 1/w (larger is nearer), initialized to -inf
}

// NewFrameBuffer allocates a transparent color buffer and -inf z-buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	n := w * h
	zbuf := make([]float64, n)
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, n*4),
		ZBuf:   zbuf,
	}
}

// Fill sets every pixel to the given color without touching depth.
func (fb *FrameBuffer) Fill(r, g, b, a uint8) {
	for i := 0; i < len(fb.Color); i += 4 {
		fb.Color[i], fb.Color[i+1], fb.Color[i+2], fb.Color[i+3] = r, g, b, a
	}
}

// Image copies the color buffer into a new NRGBA image.
func (fb *FrameBuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	copy(img.Pix, fb.Color)
	return img
}

// blend composites (r, g, b) at alpha a over the pixel at i.
func (fb *FrameBuffer) blend(i int, r, g, b, a float64) {
	da := float64(fb.Color[i+3]) / 255
	oa := a + da*(1-a)
	if oa <= 0 {
		return
	}
	k := da * (1 - a)
	fb.Color[i] = clamp255((r*a + float64(fb.Color[i])*k) / oa)
	fb.Color[i+1] = clamp255((g*a + float64(fb.Color[i+1])*k) / oa)
	fb.Color[i+2] = clamp255((b*a + float64(fb.Color[i+2])*k) / oa)
	fb.Color[i+3] = clamp255(oa * 255)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
