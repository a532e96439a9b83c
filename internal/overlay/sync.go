// Package overlay keeps screen-space labels attached to world points.
package overlay

import (
	"github.com/go-gl/mathgl/mgl64"

	"splatviewer/internal/mathutil"
)

// Rect is a viewport in window pixels.
type Rect struct {
	X, Y, W, H float64
}

// Element is a UI widget positioned by its top-left corner.
type Element interface {
	SetVisible(visible bool)
	Place(left, top float64)
	Size() (w, h float64)
}

// Projector maps a world point to viewport pixels. Z is positive in front
// of the camera.
type Projector interface {
	WorldToScreen(p mgl64.Vec3, width, height float64) mgl64.Vec3
}

// Point ties a world position to the element that labels it.
type Point struct {
	World   mgl64.Vec3
	Element Element
}

// Synchronizer repositions overlay elements every frame.
type Synchronizer struct {
	points []Point
	// placed holds each element's rectangle from the last Sync; hidden
	// elements have a zero rectangle.
	placed []Rect
}

func NewSynchronizer() *Synchronizer { return &Synchronizer{} }

// SetPoints replaces the registered points wholesale.
func (s *Synchronizer) SetPoints(pts []Point) {
	s.points = append(s.points[:0:0], pts...)
	s.placed = make([]Rect, len(pts))
}

func (s *Synchronizer) Points() []Point { return s.points }

// Len returns the number of registered points.
func (s *Synchronizer) Len() int { return len(s.points) }

// Clear removes every point after hiding its element.
func (s *Synchronizer) Clear() {
	for _, p := range s.points {
		if p.Element != nil {
			p.Element.SetVisible(false)
		}
	}
	s.points = nil
	s.placed = nil
}

// Sync projects every point through proj and centers its element on the
// result. Points behind the camera or with non-finite coordinates are
// hidden. A nil projector leaves everything untouched.
func (s *Synchronizer) Sync(proj Projector, vp Rect) {
	if proj == nil {
		return
	}
	for i, p := range s.points {
		s.placed[i] = Rect{}
		if p.Element == nil {
			continue
		}
		sp := proj.WorldToScreen(p.World, vp.W, vp.H)
		if !(sp.Z() > 0) || !mathutil.IsFinite(sp.X()) || !mathutil.IsFinite(sp.Y()) {
			p.Element.SetVisible(false)
			continue
		}
		w, h := p.Element.Size()
		left, top := vp.X+sp.X()-w/2, vp.Y+sp.Y()-h/2
		p.Element.Place(left, top)
		p.Element.SetVisible(true)
		s.placed[i] = Rect{X: left, Y: top, W: w, H: h}
	}
}

// Pick returns the index of the topmost element placed by the last Sync
// that contains (x, y), or -1.
func (s *Synchronizer) Pick(x, y float64) int {
	for i := len(s.placed) - 1; i >= 0; i-- {
		r := s.placed[i]
		if r.W <= 0 || r.H <= 0 {
			continue
		}
		if x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H {
			return i
		}
	}
	return -1
}
