package postprocess

import "image"

// RemoveSmallClusters clears stray splats: 8-connected groups of pixels
// with alpha above minAlpha that hold less than minRatio of all such pixels.
// Only meaningful for frames rendered over a transparent background. The
// input is left untouched.
func RemoveSmallClusters(img *image.NRGBA, minRatio float64, minAlpha uint8) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	opaque := func(x, y int) bool { return img.Pix[y*img.Stride+x*4+3] > minAlpha }

	// Two-pass labelling: link each covered pixel to its already-visited
	// neighbours, then count the members of each root.
	sets := newDisjointSet(w * h)
	covered := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !opaque(x, y) {
				continue
			}
			covered++
			i := y*w + x
			if x > 0 && opaque(x-1, y) {
				sets.union(i, i-1)
			}
			if y == 0 {
				continue
			}
			for nx := x - 1; nx <= x+1; nx++ {
				if nx >= 0 && nx < w && opaque(nx, y-1) {
					sets.union(i, i-w+nx-x)
				}
			}
		}
	}
	if covered == 0 {
		return img
	}

	size := make(map[int]int)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if opaque(x, y) {
				size[sets.find(y*w+x)]++
			}
		}
	}
	if len(size) <= 1 {
		return img
	}

	threshold := int(float64(covered) * minRatio)
	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if opaque(x, y) && size[sets.find(y*w+x)] < threshold {
				p := out.Pix[y*out.Stride+x*4:]
				p[0], p[1], p[2], p[3] = 0, 0, 0, 0
			}
		}
	}
	return out
}

type disjointSet []int

func newDisjointSet(n int) disjointSet {
	s := make(disjointSet, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func (s disjointSet) find(i int) int {
	for s[i] != i {
		s[i] = s[s[i]]
		i = s[i]
	}
	return i
}

func (s disjointSet) union(a, b int) {
	ra, rb := s.find(a), s.find(b)
	if ra != rb {
		s[rb] = ra
	}
}
