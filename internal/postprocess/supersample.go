// Package postprocess cleans up rendered turntable frames before encoding.
package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample shrinks a supersampled frame to width×height. Filtering runs on
// premultiplied colour so splat edges over a transparent background keep
// their hue instead of darkening toward black.
func Downsample(img *image.NRGBA, width, height int) *image.NRGBA {
	if img.Bounds().Dx() <= width && img.Bounds().Dy() <= height {
		return img
	}

	// Drawing NRGBA onto RGBA premultiplies; drawing back divides it out.
	src := image.NewRGBA(img.Bounds())
	draw.Draw(src, src.Bounds(), img, img.Bounds().Min, draw.Src)

	small := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(small, small.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := image.NewNRGBA(small.Bounds())
	draw.Draw(out, out.Bounds(), small, image.Point{}, draw.Src)
	return out
}
